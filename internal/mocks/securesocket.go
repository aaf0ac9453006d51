package mocks

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/gotev/tlscompat/internal/model"
)

// SecureSocket allows mocking a model.SecureSocket.
type SecureSocket struct {
	// Conn is the embedded mockable Conn.
	Conn

	MockConnectionState        func() tls.ConnectionState
	MockHandshakeContext       func(ctx context.Context) error
	MockNetConn                func() net.Conn
	MockConnectContext         func(ctx context.Context, network, address string) error
	MockSupportedProtocols     func() []string
	MockEnabledProtocols       func() []string
	MockSetEnabledProtocols    func(protocols []string) error
	MockSupportedCipherSuites  func() []string
	MockEnabledCipherSuites    func() []string
	MockSetEnabledCipherSuites func(suites []string) error
}

var _ model.SecureSocket = &SecureSocket{}

// ConnectionState calls MockConnectionState.
func (s *SecureSocket) ConnectionState() tls.ConnectionState {
	return s.MockConnectionState()
}

// HandshakeContext calls MockHandshakeContext.
func (s *SecureSocket) HandshakeContext(ctx context.Context) error {
	return s.MockHandshakeContext(ctx)
}

// NetConn calls MockNetConn.
func (s *SecureSocket) NetConn() net.Conn {
	return s.MockNetConn()
}

// ConnectContext calls MockConnectContext.
func (s *SecureSocket) ConnectContext(ctx context.Context, network, address string) error {
	return s.MockConnectContext(ctx, network, address)
}

// SupportedProtocols calls MockSupportedProtocols.
func (s *SecureSocket) SupportedProtocols() []string {
	return s.MockSupportedProtocols()
}

// EnabledProtocols calls MockEnabledProtocols.
func (s *SecureSocket) EnabledProtocols() []string {
	return s.MockEnabledProtocols()
}

// SetEnabledProtocols calls MockSetEnabledProtocols.
func (s *SecureSocket) SetEnabledProtocols(protocols []string) error {
	return s.MockSetEnabledProtocols(protocols)
}

// SupportedCipherSuites calls MockSupportedCipherSuites.
func (s *SecureSocket) SupportedCipherSuites() []string {
	return s.MockSupportedCipherSuites()
}

// EnabledCipherSuites calls MockEnabledCipherSuites.
func (s *SecureSocket) EnabledCipherSuites() []string {
	return s.MockEnabledCipherSuites()
}

// SetEnabledCipherSuites calls MockSetEnabledCipherSuites.
func (s *SecureSocket) SetEnabledCipherSuites(suites []string) error {
	return s.MockSetEnabledCipherSuites(suites)
}

// SocketFactory allows mocking a model.SocketFactory.
type SocketFactory struct {
	MockCreateSocket          func() (model.SecureSocket, error)
	MockCreateSocketContext   func(ctx context.Context, host string, port int, localAddr net.Addr) (model.SecureSocket, error)
	MockCreateLayeredSocket   func(conn net.Conn, host string, port int, autoClose bool) (model.SecureSocket, error)
	MockDefaultCipherSuites   func() []string
	MockSupportedCipherSuites func() []string
}

var _ model.SocketFactory = &SocketFactory{}

// CreateSocket calls MockCreateSocket.
func (f *SocketFactory) CreateSocket() (model.SecureSocket, error) {
	return f.MockCreateSocket()
}

// CreateSocketContext calls MockCreateSocketContext.
func (f *SocketFactory) CreateSocketContext(
	ctx context.Context, host string, port int, localAddr net.Addr) (model.SecureSocket, error) {
	return f.MockCreateSocketContext(ctx, host, port, localAddr)
}

// CreateLayeredSocket calls MockCreateLayeredSocket.
func (f *SocketFactory) CreateLayeredSocket(
	conn net.Conn, host string, port int, autoClose bool) (model.SecureSocket, error) {
	return f.MockCreateLayeredSocket(conn, host, port, autoClose)
}

// DefaultCipherSuites calls MockDefaultCipherSuites.
func (f *SocketFactory) DefaultCipherSuites() []string {
	return f.MockDefaultCipherSuites()
}

// SupportedCipherSuites calls MockSupportedCipherSuites.
func (f *SocketFactory) SupportedCipherSuites() []string {
	return f.MockSupportedCipherSuites()
}
