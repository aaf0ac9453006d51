package securesocket

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gotev/tlscompat/internal/mocks"
	"github.com/gotev/tlscompat/internal/model"
	"github.com/gotev/tlscompat/internal/trust"
)

// newTLS12Server creates a server only speaking TLSv1.2.
func newTLS12Server(t *testing.T) *httptest.Server {
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	srv.TLS = &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

// newTrustManager trusts the certificate of the given server.
func newTrustManager(srv *httptest.Server) model.X509TrustManager {
	roots := x509.NewCertPool()
	roots.AddCert(srv.Certificate())
	return trust.NewX509TrustManager(roots)
}

// newFactory creates a factory with the given default protocols.
func newFactory(t *testing.T, tm model.X509TrustManager, defaults ...string) model.SocketFactory {
	sc, err := NewContext(ProtocolTLSv12, &ContextConfig{DefaultProtocols: defaults})
	if err != nil {
		t.Fatal(err)
	}
	if err := sc.Init(tm); err != nil {
		t.Fatal(err)
	}
	factory, err := sc.SocketFactory()
	if err != nil {
		t.Fatal(err)
	}
	return factory
}

func serverHostPort(t *testing.T, srv *httptest.Server) (string, int) {
	host, portString, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portString)
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}

func TestNewContext(t *testing.T) {
	t.Run("with unknown protocol", func(t *testing.T) {
		sc, err := NewContext("SSLv3", nil)
		if !errors.Is(err, ErrUnsupportedProtocol) {
			t.Fatal("not the error we expected", err)
		}
		if sc != nil {
			t.Fatal("expected nil context")
		}
	})

	t.Run("with unknown default protocol", func(t *testing.T) {
		_, err := NewContext(ProtocolTLS, &ContextConfig{DefaultProtocols: []string{"SSLv3"}})
		if !errors.Is(err, ErrUnsupportedProtocol) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("with default protocol not supported", func(t *testing.T) {
		_, err := NewContext(ProtocolTLS, &ContextConfig{
			DefaultProtocols:   []string{ProtocolTLSv13},
			SupportedProtocols: []string{ProtocolTLSv1, ProtocolTLSv12},
		})
		if !errors.Is(err, ErrUnsupportedProtocol) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("with nil config", func(t *testing.T) {
		sc, err := NewContext(ProtocolTLS, nil)
		if err != nil {
			t.Fatal(err)
		}
		if sc.Protocol() != ProtocolTLS {
			t.Fatal("unexpected protocol")
		}
		if diff := cmp.Diff(AllProtocols, sc.config.SupportedProtocols); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]string{ProtocolTLSv12, ProtocolTLSv13}, sc.config.DefaultProtocols); diff != "" {
			t.Fatal(diff)
		}
		if sc.config.DialTimeout <= 0 {
			t.Fatal("expected positive dial timeout")
		}
	})

	t.Run("does not alias the config slices", func(t *testing.T) {
		config := &ContextConfig{DefaultProtocols: []string{ProtocolTLSv1}}
		sc, err := NewContext(ProtocolTLSv12, config)
		if err != nil {
			t.Fatal(err)
		}
		config.DefaultProtocols[0] = ProtocolTLSv13
		if sc.config.DefaultProtocols[0] != ProtocolTLSv1 {
			t.Fatal("the context aliases the config")
		}
	})
}

func TestContextSocketFactory(t *testing.T) {
	t.Run("before Init", func(t *testing.T) {
		sc, err := NewContext(ProtocolTLS, nil)
		if err != nil {
			t.Fatal(err)
		}
		factory, err := sc.SocketFactory()
		if !errors.Is(err, ErrContextNotInitialized) {
			t.Fatal("not the error we expected", err)
		}
		if factory != nil {
			t.Fatal("expected nil factory")
		}
	})

	t.Run("NewDefaultContext is initialized", func(t *testing.T) {
		factory, err := NewDefaultContext().SocketFactory()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(SecureCipherSuites(), factory.DefaultCipherSuites()); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(AllCipherSuites(), factory.SupportedCipherSuites()); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestFactoryCreateSocket(t *testing.T) {
	srv := newTLS12Server(t)
	tm := newTrustManager(srv)

	t.Run("the socket is not connected", func(t *testing.T) {
		socket, err := newFactory(t, tm).CreateSocket()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := socket.Read(make([]byte, 1)); !errors.Is(err, ErrNotConnected) {
			t.Fatal("not the error we expected", err)
		}
		if _, err := socket.Write(make([]byte, 1)); !errors.Is(err, ErrNotConnected) {
			t.Fatal("not the error we expected", err)
		}
		if err := socket.HandshakeContext(context.Background()); !errors.Is(err, ErrNotConnected) {
			t.Fatal("not the error we expected", err)
		}
		if err := socket.SetDeadline(time.Time{}); !errors.Is(err, ErrNotConnected) {
			t.Fatal("not the error we expected", err)
		}
		if socket.LocalAddr() != nil || socket.RemoteAddr() != nil {
			t.Fatal("expected nil addresses")
		}
		if socket.NetConn() != nil {
			t.Fatal("expected nil NetConn")
		}
		if err := socket.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("connect and handshake", func(t *testing.T) {
		socket, err := newFactory(t, tm).CreateSocket()
		if err != nil {
			t.Fatal(err)
		}
		defer socket.Close()
		ctx := context.Background()
		if err := socket.ConnectContext(ctx, "tcp", srv.Listener.Addr().String()); err != nil {
			t.Fatal(err)
		}
		if err := socket.ConnectContext(ctx, "tcp", srv.Listener.Addr().String()); !errors.Is(err, ErrAlreadyConnected) {
			t.Fatal("not the error we expected", err)
		}
		if err := socket.HandshakeContext(ctx); err != nil {
			t.Fatal(err)
		}
		if socket.ConnectionState().Version != tls.VersionTLS12 {
			t.Fatal("unexpected version")
		}
	})

	t.Run("connect with invalid address", func(t *testing.T) {
		socket, err := newFactory(t, tm).CreateSocket()
		if err != nil {
			t.Fatal(err)
		}
		if err := socket.ConnectContext(context.Background(), "tcp", "antani"); err == nil {
			t.Fatal("expected an error here")
		}
	})
}

func TestFactoryCreateSocketContext(t *testing.T) {
	srv := newTLS12Server(t)
	tm := newTrustManager(srv)
	host, port := serverHostPort(t, srv)

	t.Run("with only TLSv1 enabled the handshake fails", func(t *testing.T) {
		socket, err := newFactory(t, tm, ProtocolTLSv1).CreateSocketContext(
			context.Background(), host, port, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer socket.Close()
		if diff := cmp.Diff([]string{ProtocolTLSv1}, socket.EnabledProtocols()); diff != "" {
			t.Fatal(diff)
		}
		if err := socket.HandshakeContext(context.Background()); err == nil {
			t.Fatal("expected an error here")
		}
	})

	t.Run("enabling TLSv1.2 makes the handshake succeed", func(t *testing.T) {
		socket, err := newFactory(t, tm, ProtocolTLSv1).CreateSocketContext(
			context.Background(), host, port, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer socket.Close()
		if err := socket.SetEnabledProtocols([]string{ProtocolTLSv12}); err != nil {
			t.Fatal(err)
		}
		if err := socket.HandshakeContext(context.Background()); err != nil {
			t.Fatal(err)
		}
		state := socket.ConnectionState()
		if state.Version != tls.VersionTLS12 {
			t.Fatal("unexpected version", ProtocolName(state.Version))
		}
		if err := socket.SetEnabledProtocols([]string{ProtocolTLSv13}); !errors.Is(err, ErrHandshakeStarted) {
			t.Fatal("not the error we expected", err)
		}
		if socket.NetConn() == nil || socket.LocalAddr() == nil || socket.RemoteAddr() == nil {
			t.Fatal("expected a connected socket")
		}
	})

	t.Run("with local address", func(t *testing.T) {
		local := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
		socket, err := newFactory(t, tm).CreateSocketContext(
			context.Background(), host, port, local)
		if err != nil {
			t.Fatal(err)
		}
		defer socket.Close()
		addr, good := socket.LocalAddr().(*net.TCPAddr)
		if !good || !addr.IP.Equal(local.IP) {
			t.Fatal("not bound to the local address", socket.LocalAddr())
		}
	})

	t.Run("when dialing fails", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // fail immediately
		socket, err := newFactory(t, tm).CreateSocketContext(ctx, host, port, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatal("not the error we expected", err)
		}
		if socket != nil {
			t.Fatal("expected nil socket")
		}
	})

	t.Run("the trust manager decides", func(t *testing.T) {
		expected := errors.New("mocked error")
		var gotName string
		tm := &mocks.X509TrustManager{
			MockCheckServerTrusted: func(chain []*x509.Certificate, serverName string) error {
				gotName = serverName
				return expected
			},
		}
		socket, err := newFactory(t, tm).CreateSocketContext(
			context.Background(), host, port, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer socket.Close()
		if err := socket.HandshakeContext(context.Background()); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		if gotName != host {
			t.Fatal("unexpected server name", gotName)
		}
	})
}

func TestFactoryCreateLayeredSocket(t *testing.T) {
	t.Run("with nil conn", func(t *testing.T) {
		socket, err := newFactory(t, nil).CreateLayeredSocket(nil, "example.com", 443, true)
		if !errors.Is(err, ErrNotConnected) {
			t.Fatal("not the error we expected", err)
		}
		if socket != nil {
			t.Fatal("expected nil socket")
		}
	})

	t.Run("with autoClose", func(t *testing.T) {
		var called bool
		conn := &mocks.Conn{
			MockClose: func() error {
				called = true
				return nil
			},
		}
		socket, err := newFactory(t, nil).CreateLayeredSocket(conn, "example.com", 443, true)
		if err != nil {
			t.Fatal(err)
		}
		socket.Close()
		if !called {
			t.Fatal("did not close the underlying conn")
		}
	})

	t.Run("without autoClose", func(t *testing.T) {
		conn := &mocks.Conn{
			MockClose: func() error {
				t.Fatal("should not be called")
				return nil
			},
		}
		socket, err := newFactory(t, nil).CreateLayeredSocket(conn, "example.com", 443, false)
		if err != nil {
			t.Fatal(err)
		}
		if err := socket.Close(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("over a working conn", func(t *testing.T) {
		srv := newTLS12Server(t)
		conn, err := net.Dial("tcp", srv.Listener.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		host, port := serverHostPort(t, srv)
		socket, err := newFactory(t, newTrustManager(srv)).CreateLayeredSocket(conn, host, port, true)
		if err != nil {
			t.Fatal(err)
		}
		defer socket.Close()
		if err := socket.HandshakeContext(context.Background()); err != nil {
			t.Fatal(err)
		}
	})
}

func TestSocketSetters(t *testing.T) {
	newSocket := func(t *testing.T) model.SecureSocket {
		conn := &mocks.Conn{
			MockWrite: func(b []byte) (int, error) {
				return 0, io.EOF
			},
			MockClose: func() error {
				return nil
			},
		}
		socket, err := newFactory(t, nil).CreateLayeredSocket(conn, "example.com", 443, true)
		if err != nil {
			t.Fatal(err)
		}
		return socket
	}

	t.Run("SetEnabledProtocols", func(t *testing.T) {
		t.Run("with empty list", func(t *testing.T) {
			socket := newSocket(t)
			if err := socket.SetEnabledProtocols(nil); !errors.Is(err, ErrUnsupportedProtocol) {
				t.Fatal("not the error we expected", err)
			}
		})

		t.Run("with unsupported protocol", func(t *testing.T) {
			socket := newSocket(t)
			err := socket.SetEnabledProtocols([]string{ProtocolTLSv12, "SSLv3"})
			if !errors.Is(err, ErrUnsupportedProtocol) {
				t.Fatal("not the error we expected", err)
			}
			if diff := cmp.Diff([]string{ProtocolTLSv12, ProtocolTLSv13}, socket.EnabledProtocols()); diff != "" {
				t.Fatal(diff)
			}
		})

		t.Run("replaces the enabled set", func(t *testing.T) {
			socket := newSocket(t)
			if err := socket.SetEnabledProtocols([]string{ProtocolTLSv1}); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{ProtocolTLSv1}, socket.EnabledProtocols()); diff != "" {
				t.Fatal(diff)
			}
			if diff := cmp.Diff(AllProtocols, socket.SupportedProtocols()); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("SetEnabledCipherSuites", func(t *testing.T) {
		t.Run("with empty list", func(t *testing.T) {
			socket := newSocket(t)
			if err := socket.SetEnabledCipherSuites(nil); !errors.Is(err, ErrUnsupportedCipherSuite) {
				t.Fatal("not the error we expected", err)
			}
		})

		t.Run("with unsupported cipher suite", func(t *testing.T) {
			socket := newSocket(t)
			err := socket.SetEnabledCipherSuites([]string{"TLS_NULL_WITH_NULL_NULL"})
			if !errors.Is(err, ErrUnsupportedCipherSuite) {
				t.Fatal("not the error we expected", err)
			}
		})

		t.Run("replaces the enabled set", func(t *testing.T) {
			socket := newSocket(t)
			suites := []string{"TLS_RSA_WITH_RC4_128_SHA"}
			if err := socket.SetEnabledCipherSuites(suites); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(suites, socket.EnabledCipherSuites()); diff != "" {
				t.Fatal(diff)
			}
			if diff := cmp.Diff(AllCipherSuites(), socket.SupportedCipherSuites()); diff != "" {
				t.Fatal(diff)
			}
		})
	})

	t.Run("after the handshake started", func(t *testing.T) {
		socket := newSocket(t)
		if err := socket.HandshakeContext(context.Background()); !errors.Is(err, io.EOF) {
			t.Fatal("not the error we expected", err)
		}
		if err := socket.SetEnabledProtocols([]string{ProtocolTLSv12}); !errors.Is(err, ErrHandshakeStarted) {
			t.Fatal("not the error we expected", err)
		}
		suites := []string{"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"}
		if err := socket.SetEnabledCipherSuites(suites); !errors.Is(err, ErrHandshakeStarted) {
			t.Fatal("not the error we expected", err)
		}
	})
}

func TestSocketTLSConfig(t *testing.T) {
	socket := &Socket{
		serverName:       "example.com",
		enabledProtocols: []string{ProtocolTLSv12},
		enabledSuites:    []string{"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256", "TLS_AES_128_GCM_SHA256"},
	}

	t.Run("without trust manager", func(t *testing.T) {
		config := socket.tlsConfig()
		if config.ServerName != "example.com" {
			t.Fatal("unexpected server name")
		}
		if config.MinVersion != tls.VersionTLS12 || config.MaxVersion != tls.VersionTLS12 {
			t.Fatal("unexpected version range")
		}
		expectSuites := []uint16{tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256, tls.TLS_AES_128_GCM_SHA256}
		if diff := cmp.Diff(expectSuites, config.CipherSuites); diff != "" {
			t.Fatal(diff)
		}
		if config.InsecureSkipVerify || config.VerifyConnection != nil {
			t.Fatal("expected crypto/tls verification")
		}
	})

	t.Run("with trust manager", func(t *testing.T) {
		socket.trustManager = &mocks.X509TrustManager{}
		config := socket.tlsConfig()
		if !config.InsecureSkipVerify || config.VerifyConnection == nil {
			t.Fatal("expected trust manager verification")
		}
	})
}
