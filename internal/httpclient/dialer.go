package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gotev/tlscompat/internal/connspec"
	"github.com/gotev/tlscompat/internal/model"
	"github.com/gotev/tlscompat/internal/securesocket"
	oohttp "github.com/ooni/oohttp"
	"golang.org/x/net/proxy"
)

var _ oohttp.TLSConn = &securesocket.Socket{}

// dialerWithTimeouts enforces read and write timeouts on the
// conns created by the underlying dialer.
type dialerWithTimeouts struct {
	Dialer       model.Dialer
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

var _ model.Dialer = &dialerWithTimeouts{}

// DialContext implements model.Dialer.
func (d *dialerWithTimeouts) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return &connWithTimeouts{
		Conn:         conn,
		readTimeout:  d.ReadTimeout,
		writeTimeout: d.WriteTimeout,
	}, nil
}

// connWithTimeouts is a conn where each read and write has a deadline.
type connWithTimeouts struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Read implements net.Conn.
func (c *connWithTimeouts) Read(b []byte) (int, error) {
	if c.readTimeout > 0 {
		c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		defer c.Conn.SetReadDeadline(time.Time{})
	}
	return c.Conn.Read(b)
}

// Write implements net.Conn.
func (c *connWithTimeouts) Write(b []byte) (int, error) {
	if c.writeTimeout > 0 {
		c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		defer c.Conn.SetWriteDeadline(time.Time{})
	}
	return c.Conn.Write(b)
}

// cleartextDialer creates plaintext conns only when a spec allows it.
type cleartextDialer struct {
	Dialer model.Dialer
	Specs  []connspec.ConnectionSpec
}

var _ model.Dialer = &cleartextDialer{}

// DialContext implements model.Dialer.
func (d *cleartextDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	for _, spec := range d.Specs {
		if !spec.TLS {
			return d.Dialer.DialContext(ctx, network, address)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCleartextNotPermitted, address)
}

// newProxyDialer returns a dialer connecting through the given proxy.
func newProxyDialer(proxyURL *url.URL, timeout time.Duration) (model.Dialer, error) {
	child := &net.Dialer{Timeout: timeout, KeepAlive: 15 * time.Second}
	pd, err := proxy.FromURL(proxyURL, child)
	if err != nil {
		return nil, err
	}
	cd, good := pd.(proxy.ContextDialer)
	if !good {
		return nil, fmt.Errorf("httpclient: proxy %s does not support contexts", proxyURL.Redacted())
	}
	return cd, nil
}

// specTLSDialer creates TLS conns using a socket factory and trying the
// connection specs in order.
type specTLSDialer struct {
	// Dialer is the MANDATORY dialer for the TCP conn.
	Dialer model.Dialer

	// Factory is the MANDATORY factory creating layered sockets.
	Factory model.SocketFactory

	// HandshakeTimeout is the OPTIONAL handshake timeout.
	HandshakeTimeout time.Duration

	// Logger is the MANDATORY logger.
	Logger model.Logger

	// Specs contains the MANDATORY connection specs.
	Specs []connspec.ConnectionSpec
}

// DialTLSContext dials a TLS connection with the given address.
func (d *specTLSDialer) DialTLSContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	portnum, err := strconv.Atoi(port)
	if err != nil {
		return nil, err
	}
	selector := &specSelector{specs: d.Specs}
	for {
		selector.fallbackPossible = false // only handshake failures may fall back
		socket, err := d.dialOnce(ctx, network, address, host, portnum, selector)
		if err == nil {
			return socket, nil
		}
		if !selector.connectionFailed(err) {
			return nil, err
		}
		d.Logger.Debugf("tls: retrying %s with the next connection spec", address)
	}
}

// dialOnce creates a socket using the next compatible spec.
func (d *specTLSDialer) dialOnce(ctx context.Context, network, address, host string,
	port int, selector *specSelector) (model.SecureSocket, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	socket, err := d.Factory.CreateLayeredSocket(conn, host, port, true)
	if err != nil {
		conn.Close()
		return nil, err
	}
	spec, err := selector.configureSocket(socket)
	if err != nil {
		socket.Close()
		return nil, err
	}
	if err := d.handshake(ctx, socket, host, spec); err != nil {
		socket.Close()
		return nil, err
	}
	return socket, nil
}

// handshake performs and logs the handshake.
func (d *specTLSDialer) handshake(
	ctx context.Context, socket model.SecureSocket, host string, spec connspec.ConnectionSpec) error {
	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}
	d.Logger.Debugf("tls {sni=%s spec=%s protocols=%v}...", host, spec.Name, socket.EnabledProtocols())
	start := time.Now()
	err := socket.HandshakeContext(ctx)
	d.Logger.Debugf("tls {sni=%s spec=%s}... %s in %s", host, spec.Name, model.ErrorToStringOrOK(err), time.Since(start))
	if err != nil {
		return err
	}
	state := socket.ConnectionState()
	d.Logger.Debugf(
		"tls {sni=%s spec=%s} version=%s cipher_suite=%s",
		host, spec.Name,
		securesocket.ProtocolName(state.Version),
		securesocket.CipherSuiteName(state.CipherSuite),
	)
	return nil
}

// specSelector walks the connection specs for a single dial.
type specSelector struct {
	current          connspec.ConnectionSpec
	fallbackPossible bool
	next             int
	specs            []connspec.ConnectionSpec
}

// configureSocket applies the next spec compatible with the socket
// and returns it, or fails with ErrNoCompatibleSpec.
func (s *specSelector) configureSocket(socket model.SecureSocket) (connspec.ConnectionSpec, error) {
	for s.next < len(s.specs) {
		spec := s.specs[s.next]
		s.next++
		if !spec.TLS || !spec.IsCompatible(socket) {
			continue
		}
		s.current = spec
		s.fallbackPossible = s.isFallbackPossible(socket)
		if err := spec.Apply(socket); err != nil {
			return spec, err
		}
		return spec, nil
	}
	s.fallbackPossible = false
	return connspec.ConnectionSpec{}, fmt.Errorf("%w: specs=%v protocols=%v",
		ErrNoCompatibleSpec, s.specs, socket.EnabledProtocols())
}

// isFallbackPossible returns whether a later spec is compatible with
// the socket. The caller must invoke it before configuring the socket.
func (s *specSelector) isFallbackPossible(socket model.SecureSocket) bool {
	for _, spec := range s.specs[s.next:] {
		if spec.TLS && spec.IsCompatible(socket) {
			return true
		}
	}
	return false
}

// connectionFailed returns whether we should retry after err.
func (s *specSelector) connectionFailed(err error) bool {
	if !s.fallbackPossible || !s.current.FallbackAllowed {
		return false
	}
	return isRetryableHandshakeError(err)
}

// isRetryableHandshakeError returns false for errors that a different
// connection spec could not fix.
func isRetryableHandshakeError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNoCompatibleSpec) {
		return false
	}
	var (
		certificateError *tls.CertificateVerificationError
		hostnameError    x509.HostnameError
		authorityError   x509.UnknownAuthorityError
		invalidError     x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &certificateError),
		errors.As(err, &hostnameError),
		errors.As(err, &authorityError),
		errors.As(err, &invalidError):
		return false
	default:
		return true
	}
}
