package model

//
// Network extensions
//

import (
	"context"
	"crypto/tls"
	"net"
)

// Dialer establishes network connections.
type Dialer interface {
	// DialContext behaves like net.Dialer.DialContext.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TLSConn is the type of connection that github.com/ooni/oohttp expects
// from any library implementing TLS. The stdlib's *tls.Conn and our
// secure sockets both implement this interface.
type TLSConn interface {
	// net.Conn is the embedded conn.
	net.Conn

	// ConnectionState returns the TLS connection state.
	ConnectionState() tls.ConnectionState

	// HandshakeContext performs the handshake.
	HandshakeContext(ctx context.Context) error

	// NetConn returns the underlying net.Conn.
	NetConn() net.Conn
}

// Ensures that a tls.Conn implements the TLSConn interface.
var _ TLSConn = &tls.Conn{}

// SecureSocket is a socket configured for TLS whose handshake has not
// necessarily started yet. Until the handshake starts, you can change
// the enabled protocols and cipher suites.
//
// Protocol names are "TLSv1", "TLSv1.1", "TLSv1.2" and "TLSv1.3". Cipher
// suite names are the ones returned by tls.CipherSuiteName.
type SecureSocket interface {
	// A SecureSocket is a TLSConn.
	TLSConn

	// ConnectContext connects a socket created without a peer. It fails
	// if the socket is already connected.
	ConnectContext(ctx context.Context, network, address string) error

	// SupportedProtocols returns the protocols we could enable.
	SupportedProtocols() []string

	// EnabledProtocols returns the protocols currently enabled.
	EnabledProtocols() []string

	// SetEnabledProtocols replaces the set of enabled protocols. It fails
	// if any protocol is unsupported or the handshake already started.
	SetEnabledProtocols(protocols []string) error

	// SupportedCipherSuites returns the cipher suites we could enable.
	SupportedCipherSuites() []string

	// EnabledCipherSuites returns the cipher suites currently enabled.
	EnabledCipherSuites() []string

	// SetEnabledCipherSuites replaces the set of enabled cipher suites. It fails
	// if any suite is unsupported or the handshake already started.
	SetEnabledCipherSuites(suites []string) error
}

// SocketFactory creates secure sockets.
type SocketFactory interface {
	// CreateSocket creates a socket that is not connected yet.
	CreateSocket() (SecureSocket, error)

	// CreateSocketContext creates a socket connected to host and port. When
	// localAddr is not nil, the socket binds to it before connecting.
	CreateSocketContext(ctx context.Context, host string, port int, localAddr net.Addr) (SecureSocket, error)

	// CreateLayeredSocket creates a socket layered over an existing conn (e.g.,
	// a conn through a proxy). When autoClose is true, closing the socket also
	// closes conn. The host is used for SNI and certificate verification.
	CreateLayeredSocket(conn net.Conn, host string, port int, autoClose bool) (SecureSocket, error)

	// DefaultCipherSuites returns the cipher suites enabled by default.
	DefaultCipherSuites() []string

	// SupportedCipherSuites returns the cipher suites that could be enabled.
	SupportedCipherSuites() []string
}
