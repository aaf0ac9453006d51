package connspec

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gotev/tlscompat/internal/mocks"
	"github.com/gotev/tlscompat/internal/securesocket"
)

// newSocket returns a mocked socket with the given enabled protocols
// and cipher suites that records the setters calls.
func newSocket(protocols, suites []string) *mocks.SecureSocket {
	socket := &mocks.SecureSocket{}
	socket.MockEnabledProtocols = func() []string {
		return protocols
	}
	socket.MockEnabledCipherSuites = func() []string {
		return suites
	}
	socket.MockSetEnabledProtocols = func(v []string) error {
		protocols = v
		return nil
	}
	socket.MockSetEnabledCipherSuites = func(v []string) error {
		suites = v
		return nil
	}
	return socket
}

func TestPresets(t *testing.T) {
	t.Run("ModernTLS", func(t *testing.T) {
		if !ModernTLS.TLS || !ModernTLS.FallbackAllowed {
			t.Fatal("unexpected flags")
		}
		expect := []string{"TLSv1.3", "TLSv1.2"}
		if diff := cmp.Diff(expect, ModernTLS.TLSVersions); diff != "" {
			t.Fatal(diff)
		}
		for _, name := range ModernTLS.CipherSuites {
			if strings.Contains(name, "CBC") || strings.Contains(name, "RC4") {
				t.Fatal("unexpected legacy cipher suite", name)
			}
			if _, found := securesocket.CipherSuiteID(name); !found {
				t.Fatal("unknown cipher suite", name)
			}
		}
	})

	t.Run("CompatibleTLS", func(t *testing.T) {
		if !CompatibleTLS.TLS {
			t.Fatal("expected a TLS spec")
		}
		if len(CompatibleTLS.CipherSuites) <= len(ModernTLS.CipherSuites) {
			t.Fatal("expected more cipher suites than ModernTLS")
		}
		if !strings.Contains(CompatibleTLS.String(), "COMPATIBLE_TLS") {
			t.Fatal("unexpected string")
		}
	})

	t.Run("Cleartext", func(t *testing.T) {
		if Cleartext.TLS {
			t.Fatal("expected a cleartext spec")
		}
		if Cleartext.String() != "ConnectionSpec(CLEARTEXT)" {
			t.Fatal("unexpected string", Cleartext.String())
		}
	})
}

func TestBuilder(t *testing.T) {
	t.Run("copies the initial spec", func(t *testing.T) {
		spec := NewBuilder(ModernTLS).Build()
		if diff := cmp.Diff(ModernTLS, spec); diff != "" {
			t.Fatal(diff)
		}
		spec.TLSVersions[0] = "antani"
		if ModernTLS.TLSVersions[0] == "antani" {
			t.Fatal("the builder aliases the preset")
		}
	})

	t.Run("overrides fields", func(t *testing.T) {
		spec := NewBuilder(CompatibleTLS).
			Name("TLS12_ONLY").
			TLSVersions(securesocket.ProtocolTLSv12).
			CipherSuites("TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256").
			FallbackAllowed(false).
			Build()
		expect := ConnectionSpec{
			Name:            "TLS12_ONLY",
			TLS:             true,
			TLSVersions:     []string{securesocket.ProtocolTLSv12},
			CipherSuites:    []string{"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"},
			FallbackAllowed: false,
		}
		if diff := cmp.Diff(expect, spec); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("all enabled", func(t *testing.T) {
		spec := NewBuilder(ModernTLS).AllEnabledTLSVersions().AllEnabledCipherSuites().Build()
		if spec.TLSVersions != nil || spec.CipherSuites != nil {
			t.Fatal("expected nil lists")
		}
	})
}

func TestIsCompatible(t *testing.T) {
	gcm := "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"
	cbc := "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA"
	tests := []struct {
		name      string
		spec      ConnectionSpec
		protocols []string
		suites    []string
		want      bool
	}{{
		name:      "cleartext is never compatible",
		spec:      Cleartext,
		protocols: []string{"TLSv1.2"},
		suites:    []string{gcm},
		want:      false,
	}, {
		name:      "modern with TLSv1 only",
		spec:      ModernTLS,
		protocols: []string{"TLSv1"},
		suites:    []string{gcm, cbc},
		want:      false,
	}, {
		name:      "modern with TLSv1.2 and CBC only",
		spec:      ModernTLS,
		protocols: []string{"TLSv1.2"},
		suites:    []string{cbc},
		want:      false,
	}, {
		name:      "modern with TLSv1.2",
		spec:      ModernTLS,
		protocols: []string{"TLSv1.2"},
		suites:    []string{cbc, gcm},
		want:      true,
	}, {
		name:      "compatible with TLSv1",
		spec:      CompatibleTLS,
		protocols: []string{"TLSv1"},
		suites:    []string{cbc},
		want:      true,
	}, {
		name:      "all enabled",
		spec:      NewBuilder(ModernTLS).AllEnabledTLSVersions().AllEnabledCipherSuites().Build(),
		protocols: []string{"TLSv1"},
		suites:    []string{cbc},
		want:      true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			socket := newSocket(tt.protocols, tt.suites)
			if got := tt.spec.IsCompatible(socket); got != tt.want {
				t.Fatal("unexpected result", got)
			}
		})
	}
}

func TestApply(t *testing.T) {
	gcm := "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"
	cbc := "TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA"
	rc4 := "TLS_RSA_WITH_RC4_128_SHA"

	t.Run("restricts the socket preserving its order", func(t *testing.T) {
		socket := newSocket([]string{"TLSv1", "TLSv1.2", "TLSv1.3"}, []string{rc4, cbc, gcm})
		if err := ModernTLS.Apply(socket); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"TLSv1.2", "TLSv1.3"}, socket.EnabledProtocols()); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff([]string{gcm}, socket.EnabledCipherSuites()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("with cleartext", func(t *testing.T) {
		socket := newSocket([]string{"TLSv1.2"}, []string{gcm})
		if err := Cleartext.Apply(socket); !errors.Is(err, ErrIncompatible) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("without common protocols", func(t *testing.T) {
		socket := newSocket([]string{"TLSv1"}, []string{gcm})
		if err := ModernTLS.Apply(socket); !errors.Is(err, ErrIncompatible) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("without common cipher suites", func(t *testing.T) {
		socket := newSocket([]string{"TLSv1.2"}, []string{rc4})
		if err := ModernTLS.Apply(socket); !errors.Is(err, ErrIncompatible) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("when the socket rejects the protocols", func(t *testing.T) {
		expected := errors.New("mocked error")
		socket := newSocket([]string{"TLSv1.2"}, []string{gcm})
		socket.MockSetEnabledProtocols = func(v []string) error {
			return expected
		}
		if err := ModernTLS.Apply(socket); !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
	})
}
