package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gotev/tlscompat/internal/connspec"
	"github.com/gotev/tlscompat/internal/model"
	"github.com/gotev/tlscompat/internal/securesocket"
	oohttp "github.com/ooni/oohttp"
)

var (
	// ErrNoCompatibleSpec indicates that none of the configured connection
	// specs is compatible with the socket created by the socket factory.
	ErrNoCompatibleSpec = errors.New("httpclient: no compatible connection spec")

	// ErrCleartextNotPermitted indicates that we refused to create a
	// plaintext connection because no spec allows cleartext.
	ErrCleartextNotPermitted = errors.New("httpclient: cleartext communication not permitted")

	// ErrTooManyRedirects indicates that we stopped following redirects.
	ErrTooManyRedirects = errors.New("httpclient: stopped after too many redirects")
)

// Client is an HTTP client. Use [*Builder] to construct it. A client is
// safe for concurrent use by multiple goroutines.
type Client struct {
	client       *http.Client
	factory      model.SocketFactory
	specs        []connspec.ConnectionSpec
	trustManager model.X509TrustManager
	txp          *httpTransportLogger
}

// Build creates a new [*Client] using the current configuration. Changing
// the builder after Build does not modify the returned client.
func (b *Builder) Build() (*Client, error) {
	logger := model.ValidLoggerOrDefault(b.logger)
	factory := b.socketFactory
	if factory == nil {
		var err error
		factory, err = securesocket.NewDefaultContext().SocketFactory()
		if err != nil {
			return nil, err
		}
	}
	specs := slices.Clone(b.specs)
	if len(specs) <= 0 {
		specs = slices.Clone(DefaultConnectionSpecs)
	}

	var dialer model.Dialer = &net.Dialer{
		Timeout:   b.connectTimeout,
		KeepAlive: 15 * time.Second,
	}
	if b.proxyURL != nil {
		pd, err := newProxyDialer(b.proxyURL, b.connectTimeout)
		if err != nil {
			return nil, err
		}
		dialer = pd
	}
	dialer = &dialerWithTimeouts{
		Dialer:       dialer,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
	}
	tlsDialer := &specTLSDialer{
		Dialer:           dialer,
		Factory:          factory,
		HandshakeTimeout: b.connectTimeout,
		Logger:           logger,
		Specs:            specs,
	}
	plainDialer := &cleartextDialer{
		Dialer: dialer,
		Specs:  specs,
	}

	// Using oohttp because our TLS conns are not *tls.Conn.
	txp := oohttp.DefaultTransport.(*oohttp.Transport).Clone()
	txp.DialContext = plainDialer.DialContext
	txp.DialTLSContext = tlsDialer.DialTLSContext

	// The proxy, if any, is handled by the dialer.
	txp.Proxy = nil

	// We do not negotiate ALPN, hence we only speak HTTP/1.1.
	txp.ForceAttemptHTTP2 = false

	txpLogger := &httpTransportLogger{
		HTTPTransport: &oohttp.StdlibTransport{Transport: txp},
		Logger:        logger,
	}
	config := *b // the redirect policy must not see later changes
	return &Client{
		client: &http.Client{
			Transport:     txpLogger,
			CheckRedirect: config.checkRedirect,
		},
		factory:      factory,
		specs:        specs,
		trustManager: b.trustManager,
		txp:          txpLogger,
	}, nil
}

// Do sends an HTTP request and returns the response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// Get issues a GET request for the given URL.
func (c *Client) Get(ctx context.Context, URL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", URL, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetBody issues a GET request and reads the whole response body. It
// returns an error if the status code is not successful.
func (c *Client) GetBody(ctx context.Context, URL string) ([]byte, error) {
	resp, err := c.Get(ctx, URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("httpclient: request failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// CloseIdleConnections closes the idle connections.
func (c *Client) CloseIdleConnections() {
	c.txp.CloseIdleConnections()
}

// SocketFactory returns the socket factory used by the client.
func (c *Client) SocketFactory() model.SocketFactory {
	return c.factory
}

// TrustManager returns the trust manager configured with the socket
// factory or nil when the client uses the default verification.
func (c *Client) TrustManager() model.X509TrustManager {
	return c.trustManager
}

// ConnectionSpecs returns a copy of the connection specs used by the client.
func (c *Client) ConnectionSpecs() []connspec.ConnectionSpec {
	return slices.Clone(c.specs)
}
