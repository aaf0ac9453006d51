package tlscompat

import (
	"context"
	"net"

	"github.com/gotev/tlscompat/internal/model"
)

// ProtocolEnablingSocketFactory is a [model.SocketFactory] enabling only
// a given protocol on every socket created by the delegate factory.
type ProtocolEnablingSocketFactory struct {
	delegate model.SocketFactory
	protocol string
}

var _ model.SocketFactory = &ProtocolEnablingSocketFactory{}

// NewProtocolEnablingSocketFactory wraps delegate such that created sockets
// enable exactly the given protocol (e.g., [TargetProtocol]).
func NewProtocolEnablingSocketFactory(delegate model.SocketFactory, protocol string) *ProtocolEnablingSocketFactory {
	return &ProtocolEnablingSocketFactory{
		delegate: delegate,
		protocol: protocol,
	}
}

// Protocol returns the protocol enabled on created sockets.
func (f *ProtocolEnablingSocketFactory) Protocol() string {
	return f.protocol
}

// CreateSocket implements model.SocketFactory.
func (f *ProtocolEnablingSocketFactory) CreateSocket() (model.SecureSocket, error) {
	return f.enable(f.delegate.CreateSocket())
}

// CreateSocketContext implements model.SocketFactory.
func (f *ProtocolEnablingSocketFactory) CreateSocketContext(
	ctx context.Context, host string, port int, localAddr net.Addr) (model.SecureSocket, error) {
	return f.enable(f.delegate.CreateSocketContext(ctx, host, port, localAddr))
}

// CreateLayeredSocket implements model.SocketFactory.
func (f *ProtocolEnablingSocketFactory) CreateLayeredSocket(
	conn net.Conn, host string, port int, autoClose bool) (model.SecureSocket, error) {
	return f.enable(f.delegate.CreateLayeredSocket(conn, host, port, autoClose))
}

// DefaultCipherSuites implements model.SocketFactory.
func (f *ProtocolEnablingSocketFactory) DefaultCipherSuites() []string {
	return f.delegate.DefaultCipherSuites()
}

// SupportedCipherSuites implements model.SocketFactory.
func (f *ProtocolEnablingSocketFactory) SupportedCipherSuites() []string {
	return f.delegate.SupportedCipherSuites()
}

// enable replaces the enabled protocols of a newly created socket. When
// the socket rejects the protocol, we close it and return the error.
func (f *ProtocolEnablingSocketFactory) enable(socket model.SecureSocket, err error) (model.SecureSocket, error) {
	if err != nil {
		return nil, err
	}
	if err := socket.SetEnabledProtocols([]string{f.protocol}); err != nil {
		socket.Close()
		return nil, err
	}
	return socket, nil
}
