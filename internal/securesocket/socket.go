package securesocket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/gotev/tlscompat/internal/model"
)

var (
	// ErrUnsupportedProtocol indicates that a protocol name is unknown or
	// not supported by the socket or context.
	ErrUnsupportedProtocol = errors.New("securesocket: unsupported protocol")

	// ErrUnsupportedCipherSuite indicates that a cipher suite is unknown
	// or not supported by the socket.
	ErrUnsupportedCipherSuite = errors.New("securesocket: unsupported cipher suite")

	// ErrHandshakeStarted indicates that you attempted to configure a
	// socket whose handshake has already started.
	ErrHandshakeStarted = errors.New("securesocket: handshake already started")

	// ErrNotConnected indicates that the socket has no peer yet.
	ErrNotConnected = errors.New("securesocket: not connected")

	// ErrAlreadyConnected indicates that ConnectContext was called on a
	// socket that already has a peer.
	ErrAlreadyConnected = errors.New("securesocket: already connected")
)

// Socket is the [model.SecureSocket] implementation. The zero value is
// invalid; sockets are created by the factories returned by [*Context].
//
// The underlying *tls.Conn is created lazily by the first call to
// HandshakeContext, Read or Write. After that, the enabled protocols
// and cipher suites cannot change anymore.
type Socket struct {
	// dialer is the dialer used by ConnectContext.
	dialer model.Dialer

	// supportedProtocols is the set of protocols we could enable.
	supportedProtocols []string

	// supportedSuites is the set of cipher suites we could enable.
	supportedSuites []string

	// trustManager is the OPTIONAL trust manager. When nil, we use
	// the crypto/tls verification with the system roots.
	trustManager model.X509TrustManager

	// mu protects the fields below.
	mu sync.Mutex

	// conn is the underlying conn, nil until connected.
	conn net.Conn

	// serverName is the name used for SNI and verification.
	serverName string

	// enabledProtocols is the set of enabled protocols.
	enabledProtocols []string

	// enabledSuites is the set of enabled cipher suites.
	enabledSuites []string

	// tlsconn is the TLS conn, nil until the handshake starts.
	tlsconn *tls.Conn
}

var _ model.SecureSocket = &Socket{}

// ConnectContext implements model.SecureSocket.
func (s *Socket) ConnectContext(ctx context.Context, network, address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	connected := s.conn != nil
	s.mu.Unlock()
	if connected {
		return ErrAlreadyConnected
	}
	conn, err := s.dialer.DialContext(ctx, network, address)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.conn != nil {
		conn.Close()
		return ErrAlreadyConnected
	}
	s.conn = conn
	if s.serverName == "" {
		s.serverName = host
	}
	return nil
}

// SupportedProtocols implements model.SecureSocket.
func (s *Socket) SupportedProtocols() []string {
	return slices.Clone(s.supportedProtocols)
}

// EnabledProtocols implements model.SecureSocket.
func (s *Socket) EnabledProtocols() []string {
	defer s.mu.Unlock()
	s.mu.Lock()
	return slices.Clone(s.enabledProtocols)
}

// SetEnabledProtocols implements model.SecureSocket.
func (s *Socket) SetEnabledProtocols(protocols []string) error {
	if len(protocols) <= 0 {
		return fmt.Errorf("%w: empty protocols list", ErrUnsupportedProtocol)
	}
	for _, p := range protocols {
		if !slices.Contains(s.supportedProtocols, p) {
			return fmt.Errorf("%w: %s", ErrUnsupportedProtocol, p)
		}
	}
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.tlsconn != nil {
		return ErrHandshakeStarted
	}
	s.enabledProtocols = slices.Clone(protocols)
	return nil
}

// SupportedCipherSuites implements model.SecureSocket.
func (s *Socket) SupportedCipherSuites() []string {
	return slices.Clone(s.supportedSuites)
}

// EnabledCipherSuites implements model.SecureSocket.
func (s *Socket) EnabledCipherSuites() []string {
	defer s.mu.Unlock()
	s.mu.Lock()
	return slices.Clone(s.enabledSuites)
}

// SetEnabledCipherSuites implements model.SecureSocket.
func (s *Socket) SetEnabledCipherSuites(suites []string) error {
	if len(suites) <= 0 {
		return fmt.Errorf("%w: empty cipher suites list", ErrUnsupportedCipherSuite)
	}
	for _, cs := range suites {
		if !slices.Contains(s.supportedSuites, cs) {
			return fmt.Errorf("%w: %s", ErrUnsupportedCipherSuite, cs)
		}
	}
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.tlsconn != nil {
		return ErrHandshakeStarted
	}
	s.enabledSuites = slices.Clone(suites)
	return nil
}

// tlsConfig creates the config for the current state. The caller
// must hold the mutex.
func (s *Socket) tlsConfig() *tls.Config {
	minVersion, maxVersion := versionRange(s.enabledProtocols)
	config := &tls.Config{
		ServerName: s.serverName,
		MinVersion: minVersion,
		MaxVersion: maxVersion,
	}
	for _, name := range s.enabledSuites {
		if id, found := CipherSuiteID(name); found {
			config.CipherSuites = append(config.CipherSuites, id)
		}
	}
	if tm := s.trustManager; tm != nil {
		// verification happens in VerifyConnection using the trust manager
		serverName := s.serverName
		config.InsecureSkipVerify = true
		config.VerifyConnection = func(state tls.ConnectionState) error {
			return tm.CheckServerTrusted(state.PeerCertificates, serverName)
		}
	}
	return config
}

// tlsConn returns the TLS conn, creating it on first use.
func (s *Socket) tlsConn() (*tls.Conn, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.tlsconn != nil {
		return s.tlsconn, nil
	}
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	s.tlsconn = tls.Client(s.conn, s.tlsConfig())
	return s.tlsconn, nil
}

// underlying returns the underlying conn or an error.
func (s *Socket) underlying() (net.Conn, error) {
	defer s.mu.Unlock()
	s.mu.Lock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

// HandshakeContext implements model.TLSConn.
func (s *Socket) HandshakeContext(ctx context.Context) error {
	tlsconn, err := s.tlsConn()
	if err != nil {
		return err
	}
	return tlsconn.HandshakeContext(ctx)
}

// ConnectionState implements model.TLSConn. Before the handshake
// starts, this method returns an empty state.
func (s *Socket) ConnectionState() tls.ConnectionState {
	s.mu.Lock()
	tlsconn := s.tlsconn
	s.mu.Unlock()
	if tlsconn == nil {
		return tls.ConnectionState{}
	}
	return tlsconn.ConnectionState()
}

// NetConn implements model.TLSConn.
func (s *Socket) NetConn() net.Conn {
	defer s.mu.Unlock()
	s.mu.Lock()
	return s.conn
}

// Read implements net.Conn.
func (s *Socket) Read(b []byte) (int, error) {
	tlsconn, err := s.tlsConn()
	if err != nil {
		return 0, err
	}
	return tlsconn.Read(b)
}

// Write implements net.Conn.
func (s *Socket) Write(b []byte) (int, error) {
	tlsconn, err := s.tlsConn()
	if err != nil {
		return 0, err
	}
	return tlsconn.Write(b)
}

// Close implements net.Conn. Closing a socket that is not
// connected is a no-op.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn, tlsconn := s.conn, s.tlsconn
	s.mu.Unlock()
	switch {
	case tlsconn != nil:
		return tlsconn.Close()
	case conn != nil:
		return conn.Close()
	default:
		return nil
	}
}

// LocalAddr implements net.Conn. It returns nil if not connected.
func (s *Socket) LocalAddr() net.Addr {
	conn, err := s.underlying()
	if err != nil {
		return nil
	}
	return conn.LocalAddr()
}

// RemoteAddr implements net.Conn. It returns nil if not connected.
func (s *Socket) RemoteAddr() net.Addr {
	conn, err := s.underlying()
	if err != nil {
		return nil
	}
	return conn.RemoteAddr()
}

// SetDeadline implements net.Conn.
func (s *Socket) SetDeadline(t time.Time) error {
	conn, err := s.underlying()
	if err != nil {
		return err
	}
	return conn.SetDeadline(t)
}

// SetReadDeadline implements net.Conn.
func (s *Socket) SetReadDeadline(t time.Time) error {
	conn, err := s.underlying()
	if err != nil {
		return err
	}
	return conn.SetReadDeadline(t)
}

// SetWriteDeadline implements net.Conn.
func (s *Socket) SetWriteDeadline(t time.Time) error {
	conn, err := s.underlying()
	if err != nil {
		return err
	}
	return conn.SetWriteDeadline(t)
}

// connWithoutClose is a conn whose Close does not close the
// underlying conn. We use it for layered sockets created without
// the autoClose flag.
type connWithoutClose struct {
	net.Conn
}

// Close implements net.Conn.
func (c *connWithoutClose) Close() error {
	return nil
}
