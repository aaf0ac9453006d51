// Package platform emulates the platform services consumed by the
// TLS compatibility patch.
//
// The emulation reproduces how old mobile platform releases configure
// TLS sockets: from version 16 the provider supports TLSv1.1 and TLSv1.2
// but, until version 19, only TLSv1 is enabled by default on new sockets.
package platform

import (
	"crypto/x509"
	"slices"

	"github.com/gotev/tlscompat/internal/model"
	"github.com/gotev/tlscompat/internal/securesocket"
	"github.com/gotev/tlscompat/internal/trust"
)

// Well-known platform versions.
const (
	VersionJellyBean   = 16
	VersionKitKat      = 19
	VersionKitKatWatch = 20
	VersionLollipop    = 21
	VersionMarshmallow = 23
	VersionQ           = 29
)

// Emulated is an emulated [model.Platform].
type Emulated struct {
	// Level is the MANDATORY platform version.
	Level int

	// TrustStore is the OPTIONAL default trust store. When nil, we
	// use the system certificate pool.
	TrustStore *x509.CertPool
}

var _ model.Platform = &Emulated{}

// New creates a new emulated platform using the system trust store.
func New(level int) *Emulated {
	return &Emulated{Level: level}
}

// Version implements model.Platform.
func (p *Emulated) Version() int {
	return p.Level
}

// DefaultTrustAlgorithm implements model.Platform.
func (p *Emulated) DefaultTrustAlgorithm() string {
	return trust.AlgorithmPKIX
}

// NewTrustManagerFactory implements model.Platform.
func (p *Emulated) NewTrustManagerFactory(algorithm string) (model.TrustManagerFactory, error) {
	factory, err := trust.NewFactory(algorithm, p.defaultTrustStore)
	if err != nil {
		return nil, err
	}
	return factory, nil
}

// defaultTrustStore returns the platform default trust store.
func (p *Emulated) defaultTrustStore() (*x509.CertPool, error) {
	if p.TrustStore != nil {
		return p.TrustStore, nil
	}
	return x509.SystemCertPool()
}

// NewSecureContext implements model.Platform.
func (p *Emulated) NewSecureContext(protocol string) (model.SecureContext, error) {
	sc, err := securesocket.NewContext(protocol, p.ContextConfig())
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// ContextConfig returns the secure context configuration of this platform.
func (p *Emulated) ContextConfig() *securesocket.ContextConfig {
	return &securesocket.ContextConfig{
		DefaultProtocols:   p.DefaultProtocols(),
		SupportedProtocols: p.SupportedProtocols(),
	}
}

// SupportedProtocols returns the protocols supported by the provider.
func (p *Emulated) SupportedProtocols() []string {
	switch {
	case p.Level >= VersionQ:
		return slices.Clone(securesocket.AllProtocols)
	case p.Level >= VersionJellyBean:
		return []string{securesocket.ProtocolTLSv1, securesocket.ProtocolTLSv11, securesocket.ProtocolTLSv12}
	default:
		return []string{securesocket.ProtocolTLSv1}
	}
}

// DefaultProtocols returns the protocols enabled by default on new sockets.
func (p *Emulated) DefaultProtocols() []string {
	switch {
	case p.Level >= VersionKitKatWatch:
		return p.SupportedProtocols()
	default:
		return []string{securesocket.ProtocolTLSv1}
	}
}

// DefaultSocketFactory returns the factory of an initialized [securesocket.ProtocolTLS]
// context using the platform default trust store. This is the factory an HTTP client
// uses when nobody patches it.
func (p *Emulated) DefaultSocketFactory() (model.SocketFactory, error) {
	sc, err := p.NewSecureContext(securesocket.ProtocolTLS)
	if err != nil {
		return nil, err
	}
	store, err := p.defaultTrustStore()
	if err != nil {
		return nil, err
	}
	if err := sc.Init(trust.NewX509TrustManager(store)); err != nil {
		return nil, err
	}
	return sc.SocketFactory()
}
