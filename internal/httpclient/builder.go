// Package httpclient contains an HTTP client whose TLS connections are
// created by a configurable [model.SocketFactory] and negotiated using an
// ordered list of [connspec.ConnectionSpec].
package httpclient

import (
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gotev/tlscompat/internal/connspec"
	"github.com/gotev/tlscompat/internal/model"
)

// DefaultConnectionSpecs are the specs used when the builder
// does not configure any spec.
var DefaultConnectionSpecs = []connspec.ConnectionSpec{
	connspec.ModernTLS,
	connspec.Cleartext,
}

// Builder configures and builds a [*Client]. A builder is owned by a
// single goroutine; use [NewBuilder] to create a new instance.
type Builder struct {
	connectTimeout     time.Duration
	followRedirects    bool
	followSSLRedirects bool
	logger             model.Logger
	proxyURL           *url.URL
	readTimeout        time.Duration
	socketFactory      model.SocketFactory
	specs              []connspec.ConnectionSpec
	trustManager       model.X509TrustManager
	writeTimeout       time.Duration
}

// NewBuilder creates a new builder with default settings: ten seconds
// timeouts, following redirects, no proxy, the crypto/tls socket factory
// and the [DefaultConnectionSpecs].
func NewBuilder() *Builder {
	return &Builder{
		connectTimeout:     10 * time.Second,
		followRedirects:    true,
		followSSLRedirects: true,
		logger:             model.DiscardLogger,
		readTimeout:        10 * time.Second,
		writeTimeout:       10 * time.Second,
	}
}

// ConnectTimeout sets the timeout for connecting, including the TLS
// handshake. Zero means no timeout.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.connectTimeout = d
	return b
}

// ReadTimeout sets the timeout of each read. Zero means no timeout.
func (b *Builder) ReadTimeout(d time.Duration) *Builder {
	b.readTimeout = d
	return b
}

// WriteTimeout sets the timeout of each write. Zero means no timeout.
func (b *Builder) WriteTimeout(d time.Duration) *Builder {
	b.writeTimeout = d
	return b
}

// FollowRedirects sets whether to follow redirects.
func (b *Builder) FollowRedirects(follow bool) *Builder {
	b.followRedirects = follow
	return b
}

// FollowSSLRedirects sets whether to follow redirects from HTTPS
// to HTTP and from HTTP to HTTPS.
func (b *Builder) FollowSSLRedirects(follow bool) *Builder {
	b.followSSLRedirects = follow
	return b
}

// Logger sets the logger. A nil logger discards messages.
func (b *Builder) Logger(logger model.Logger) *Builder {
	b.logger = model.ValidLoggerOrDefault(logger)
	return b
}

// Proxy sets the URL of a SOCKS5 proxy. A nil URL disables the proxy.
func (b *Builder) Proxy(proxyURL *url.URL) *Builder {
	b.proxyURL = proxyURL
	return b
}

// SecureSocketFactory sets the factory creating TLS sockets and the
// trust manager validating peers through those sockets.
func (b *Builder) SecureSocketFactory(factory model.SocketFactory, tm model.X509TrustManager) *Builder {
	b.socketFactory = factory
	b.trustManager = tm
	return b
}

// ConnectionSpecs replaces the list of connection specs. The order
// of the list is the order in which the client tries the specs.
func (b *Builder) ConnectionSpecs(specs ...connspec.ConnectionSpec) *Builder {
	b.specs = slices.Clone(specs)
	return b
}

// SocketFactory returns the configured socket factory or nil.
func (b *Builder) SocketFactory() model.SocketFactory {
	return b.socketFactory
}

// TrustManager returns the configured trust manager or nil.
func (b *Builder) TrustManager() model.X509TrustManager {
	return b.trustManager
}

// ConnectionSpecList returns a copy of the configured connection
// specs or nil when no spec has been configured.
func (b *Builder) ConnectionSpecList() []connspec.ConnectionSpec {
	return slices.Clone(b.specs)
}

// checkRedirect implements the redirect policy.
func (b *Builder) checkRedirect(req *http.Request, via []*http.Request) error {
	if !b.followRedirects {
		return http.ErrUseLastResponse
	}
	if len(via) > 0 && !b.followSSLRedirects && via[len(via)-1].URL.Scheme != req.URL.Scheme {
		return http.ErrUseLastResponse
	}
	if len(via) >= maxRedirects {
		return ErrTooManyRedirects
	}
	return nil
}

// maxRedirects is the maximum number of redirects we follow.
const maxRedirects = 20
