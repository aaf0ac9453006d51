package securesocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gotev/tlscompat/internal/model"
)

// ErrContextNotInitialized indicates you called SocketFactory
// before calling Init on a [*Context].
var ErrContextNotInitialized = errors.New("securesocket: context not initialized")

// ProtocolTLS is the generic protocol name for a context that is
// not tied to any specific TLS version.
const ProtocolTLS = "TLS"

// ContextConfig contains the platform-dependent configuration of a
// [*Context]. The zero value is valid and describes a modern platform.
type ContextConfig struct {
	// DefaultProtocols is the OPTIONAL set of protocols enabled on new
	// sockets. If empty, we enable TLSv1.2 and TLSv1.3.
	DefaultProtocols []string

	// SupportedProtocols is the OPTIONAL set of protocols sockets could
	// enable. If empty, we support all the protocols we know.
	SupportedProtocols []string

	// DialTimeout is the OPTIONAL timeout for connecting. If zero
	// or negative, we use a 15 seconds timeout.
	DialTimeout time.Duration
}

// Context is the [model.SecureContext] implementation.
type Context struct {
	config   ContextConfig
	protocol string

	// mu protects the fields below.
	mu           sync.Mutex
	initialized  bool
	trustManager model.X509TrustManager
}

var _ model.SecureContext = &Context{}

// NewContext creates a new context for the given protocol name, which is
// either [ProtocolTLS] or one of the protocol names we support. A nil
// config is equivalent to a zero config.
func NewContext(protocol string, config *ContextConfig) (*Context, error) {
	if _, found := ProtocolVersion(protocol); !found && protocol != ProtocolTLS {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, protocol)
	}
	var cc ContextConfig
	if config != nil {
		cc = *config
	}
	cc.SupportedProtocols = slices.Clone(cc.SupportedProtocols)
	if len(cc.SupportedProtocols) <= 0 {
		cc.SupportedProtocols = slices.Clone(AllProtocols)
	}
	cc.DefaultProtocols = slices.Clone(cc.DefaultProtocols)
	if len(cc.DefaultProtocols) <= 0 {
		cc.DefaultProtocols = []string{ProtocolTLSv12, ProtocolTLSv13}
	}
	for _, p := range append(slices.Clone(cc.SupportedProtocols), cc.DefaultProtocols...) {
		if _, found := ProtocolVersion(p); !found {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, p)
		}
	}
	for _, p := range cc.DefaultProtocols {
		if !slices.Contains(cc.SupportedProtocols, p) {
			return nil, fmt.Errorf("%w: default protocol %s is not supported", ErrUnsupportedProtocol, p)
		}
	}
	if cc.DialTimeout <= 0 {
		cc.DialTimeout = 15 * time.Second
	}
	return &Context{config: cc, protocol: protocol}, nil
}

// NewDefaultContext creates and initializes a [ProtocolTLS] context with
// the zero config and the crypto/tls default verification.
func NewDefaultContext() *Context {
	sc, _ := NewContext(ProtocolTLS, nil) // cannot fail
	sc.Init(nil)
	return sc
}

// Protocol implements model.SecureContext.
func (c *Context) Protocol() string {
	return c.protocol
}

// Init implements model.SecureContext. A nil trust manager means that
// we verify peers using crypto/tls and the system roots.
func (c *Context) Init(tm model.X509TrustManager) error {
	defer c.mu.Unlock()
	c.mu.Lock()
	c.trustManager = tm
	c.initialized = true
	return nil
}

// SocketFactory implements model.SecureContext.
func (c *Context) SocketFactory() (model.SocketFactory, error) {
	defer c.mu.Unlock()
	c.mu.Lock()
	if !c.initialized {
		return nil, ErrContextNotInitialized
	}
	return &contextSocketFactory{
		config:       c.config,
		trustManager: c.trustManager,
	}, nil
}

// contextSocketFactory is the socket factory of a context.
type contextSocketFactory struct {
	config       ContextConfig
	trustManager model.X509TrustManager
}

var _ model.SocketFactory = &contextSocketFactory{}

// newDialer returns the dialer to use, optionally bound to localAddr.
func (f *contextSocketFactory) newDialer(localAddr net.Addr) *net.Dialer {
	return &net.Dialer{
		Timeout:   f.config.DialTimeout,
		KeepAlive: 15 * time.Second,
		LocalAddr: localAddr,
	}
}

// newSocket creates a new socket using the given conn, which may be nil.
func (f *contextSocketFactory) newSocket(conn net.Conn, host string) *Socket {
	return &Socket{
		dialer:             f.newDialer(nil),
		supportedProtocols: slices.Clone(f.config.SupportedProtocols),
		supportedSuites:    AllCipherSuites(),
		trustManager:       f.trustManager,
		conn:               conn,
		serverName:         host,
		enabledProtocols:   slices.Clone(f.config.DefaultProtocols),
		enabledSuites:      SecureCipherSuites(),
	}
}

// CreateSocket implements model.SocketFactory.
func (f *contextSocketFactory) CreateSocket() (model.SecureSocket, error) {
	return f.newSocket(nil, ""), nil
}

// CreateSocketContext implements model.SocketFactory.
func (f *contextSocketFactory) CreateSocketContext(
	ctx context.Context, host string, port int, localAddr net.Addr) (model.SecureSocket, error) {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := f.newDialer(localAddr).DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return f.newSocket(conn, host), nil
}

// CreateLayeredSocket implements model.SocketFactory.
func (f *contextSocketFactory) CreateLayeredSocket(
	conn net.Conn, host string, port int, autoClose bool) (model.SecureSocket, error) {
	if conn == nil {
		return nil, ErrNotConnected
	}
	if !autoClose {
		conn = &connWithoutClose{conn}
	}
	return f.newSocket(conn, host), nil
}

// DefaultCipherSuites implements model.SocketFactory.
func (f *contextSocketFactory) DefaultCipherSuites() []string {
	return SecureCipherSuites()
}

// SupportedCipherSuites implements model.SocketFactory.
func (f *contextSocketFactory) SupportedCipherSuites() []string {
	return AllCipherSuites()
}
