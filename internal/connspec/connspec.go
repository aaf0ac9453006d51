// Package connspec contains connection specs.
//
// A connection spec is a named set of protocols and cipher suites to
// offer during the TLS handshake. HTTP clients hold an ordered list of
// specs and use the first one compatible with the socket, falling back
// to the next ones when the handshake fails and the spec allows that.
package connspec

import (
	"crypto/tls"
	"errors"
	"fmt"
	"slices"

	"github.com/gotev/tlscompat/internal/model"
	"github.com/gotev/tlscompat/internal/securesocket"
)

// ErrIncompatible indicates that a spec shares no protocol or no
// cipher suite with a socket.
var ErrIncompatible = errors.New("connspec: incompatible with socket")

// ConnectionSpec specifies the configuration of a connection.
type ConnectionSpec struct {
	// Name is the name of the spec.
	Name string

	// TLS is false for cleartext connections.
	TLS bool

	// TLSVersions contains the protocols to offer. A nil value
	// means all the protocols enabled on the socket.
	TLSVersions []string

	// CipherSuites contains the cipher suites to offer. A nil value
	// means all the cipher suites enabled on the socket.
	CipherSuites []string

	// FallbackAllowed indicates whether a client may try the next
	// spec when the handshake using this spec fails.
	FallbackAllowed bool
}

// String implements fmt.Stringer.
func (cs ConnectionSpec) String() string {
	if !cs.TLS {
		return fmt.Sprintf("ConnectionSpec(%s)", cs.Name)
	}
	return fmt.Sprintf("ConnectionSpec(%s, tlsVersions=%v, cipherSuites=%d, fallbackAllowed=%v)",
		cs.Name, cs.versionsOrAll(), len(cs.CipherSuites), cs.FallbackAllowed)
}

func (cs ConnectionSpec) versionsOrAll() interface{} {
	if cs.TLSVersions == nil {
		return "[all enabled]"
	}
	return cs.TLSVersions
}

// IsCompatible returns whether the socket enables at least one of the
// protocols and at least one of the cipher suites of the spec.
func (cs ConnectionSpec) IsCompatible(socket model.SecureSocket) bool {
	if !cs.TLS {
		return false
	}
	protocols := intersect(socket.EnabledProtocols(), cs.TLSVersions)
	suites := intersect(socket.EnabledCipherSuites(), cs.CipherSuites)
	return len(protocols) > 0 && len(suites) > 0
}

// Apply restricts the protocols and cipher suites enabled on the socket
// to the ones of the spec, preserving the order used by the socket.
func (cs ConnectionSpec) Apply(socket model.SecureSocket) error {
	if !cs.TLS {
		return fmt.Errorf("%w: %s is not a TLS spec", ErrIncompatible, cs.Name)
	}
	protocols := intersect(socket.EnabledProtocols(), cs.TLSVersions)
	if len(protocols) <= 0 {
		return fmt.Errorf("%w: no common protocols with %s", ErrIncompatible, cs.Name)
	}
	suites := intersect(socket.EnabledCipherSuites(), cs.CipherSuites)
	if len(suites) <= 0 {
		return fmt.Errorf("%w: no common cipher suites with %s", ErrIncompatible, cs.Name)
	}
	if err := socket.SetEnabledProtocols(protocols); err != nil {
		return err
	}
	return socket.SetEnabledCipherSuites(suites)
}

// intersect returns the values also contained in filter. A nil
// filter does not filter anything.
func intersect(values, filter []string) []string {
	if filter == nil {
		return slices.Clone(values)
	}
	var out []string
	for _, v := range values {
		if slices.Contains(filter, v) {
			out = append(out, v)
		}
	}
	return out
}

// Builder builds a ConnectionSpec starting from an existing one.
type Builder struct {
	spec ConnectionSpec
}

// NewBuilder creates a builder initialized with a copy of spec.
func NewBuilder(spec ConnectionSpec) *Builder {
	spec.TLSVersions = slices.Clone(spec.TLSVersions)
	spec.CipherSuites = slices.Clone(spec.CipherSuites)
	return &Builder{spec: spec}
}

// Name sets the name.
func (b *Builder) Name(name string) *Builder {
	b.spec.Name = name
	return b
}

// TLSVersions sets the protocols to offer.
func (b *Builder) TLSVersions(versions ...string) *Builder {
	b.spec.TLSVersions = slices.Clone(versions)
	return b
}

// AllEnabledTLSVersions offers all the protocols enabled on the socket.
func (b *Builder) AllEnabledTLSVersions() *Builder {
	b.spec.TLSVersions = nil
	return b
}

// CipherSuites sets the cipher suites to offer.
func (b *Builder) CipherSuites(suites ...string) *Builder {
	b.spec.CipherSuites = slices.Clone(suites)
	return b
}

// AllEnabledCipherSuites offers all the cipher suites enabled on the socket.
func (b *Builder) AllEnabledCipherSuites() *Builder {
	b.spec.CipherSuites = nil
	return b
}

// FallbackAllowed sets whether a client may fall back to the next spec.
func (b *Builder) FallbackAllowed(allowed bool) *Builder {
	b.spec.FallbackAllowed = allowed
	return b
}

// Build returns a copy of the spec being built.
func (b *Builder) Build() ConnectionSpec {
	return NewBuilder(b.spec).spec
}

// suiteNames maps cipher suite IDs to names.
func suiteNames(ids ...uint16) (out []string) {
	for _, id := range ids {
		out = append(out, securesocket.CipherSuiteName(id))
	}
	return
}

var modernCipherSuites = suiteNames(
	tls.TLS_AES_128_GCM_SHA256,
	tls.TLS_AES_256_GCM_SHA384,
	tls.TLS_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
)

var compatibleCipherSuites = append(slices.Clone(modernCipherSuites), suiteNames(
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA,
)...)

var (
	// ModernTLS is a modern configuration offering TLSv1.3 and TLSv1.2
	// with AEAD cipher suites only.
	ModernTLS = ConnectionSpec{
		Name:            "MODERN_TLS",
		TLS:             true,
		TLSVersions:     []string{securesocket.ProtocolTLSv13, securesocket.ProtocolTLSv12},
		CipherSuites:    modernCipherSuites,
		FallbackAllowed: true,
	}

	// CompatibleTLS is a backwards-compatible configuration also offering
	// TLSv1.1 and TLSv1 together with CBC cipher suites.
	CompatibleTLS = ConnectionSpec{
		Name: "COMPATIBLE_TLS",
		TLS:  true,
		TLSVersions: []string{
			securesocket.ProtocolTLSv13,
			securesocket.ProtocolTLSv12,
			securesocket.ProtocolTLSv11,
			securesocket.ProtocolTLSv1,
		},
		CipherSuites:    compatibleCipherSuites,
		FallbackAllowed: true,
	}

	// Cleartext is the spec for unencrypted connections.
	Cleartext = ConnectionSpec{
		Name: "CLEARTEXT",
	}
)
