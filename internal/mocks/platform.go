package mocks

import (
	"crypto/x509"

	"github.com/gotev/tlscompat/internal/model"
)

// TrustManager allows mocking a model.TrustManager that is not
// capable of validating X.509 chains.
type TrustManager struct {
	MockAlgorithm func() string
}

var _ model.TrustManager = &TrustManager{}

// Algorithm calls MockAlgorithm.
func (tm *TrustManager) Algorithm() string {
	return tm.MockAlgorithm()
}

// X509TrustManager allows mocking a model.X509TrustManager.
type X509TrustManager struct {
	MockAlgorithm          func() string
	MockCheckServerTrusted func(chain []*x509.Certificate, serverName string) error
}

var _ model.X509TrustManager = &X509TrustManager{}

// Algorithm calls MockAlgorithm.
func (tm *X509TrustManager) Algorithm() string {
	return tm.MockAlgorithm()
}

// CheckServerTrusted calls MockCheckServerTrusted.
func (tm *X509TrustManager) CheckServerTrusted(chain []*x509.Certificate, serverName string) error {
	return tm.MockCheckServerTrusted(chain, serverName)
}

// TrustManagerFactory allows mocking a model.TrustManagerFactory.
type TrustManagerFactory struct {
	MockInit          func(store *x509.CertPool) error
	MockTrustManagers func() ([]model.TrustManager, error)
}

var _ model.TrustManagerFactory = &TrustManagerFactory{}

// Init calls MockInit.
func (f *TrustManagerFactory) Init(store *x509.CertPool) error {
	return f.MockInit(store)
}

// TrustManagers calls MockTrustManagers.
func (f *TrustManagerFactory) TrustManagers() ([]model.TrustManager, error) {
	return f.MockTrustManagers()
}

// SecureContext allows mocking a model.SecureContext.
type SecureContext struct {
	MockProtocol      func() string
	MockInit          func(tm model.X509TrustManager) error
	MockSocketFactory func() (model.SocketFactory, error)
}

var _ model.SecureContext = &SecureContext{}

// Protocol calls MockProtocol.
func (c *SecureContext) Protocol() string {
	return c.MockProtocol()
}

// Init calls MockInit.
func (c *SecureContext) Init(tm model.X509TrustManager) error {
	return c.MockInit(tm)
}

// SocketFactory calls MockSocketFactory.
func (c *SecureContext) SocketFactory() (model.SocketFactory, error) {
	return c.MockSocketFactory()
}

// Platform allows mocking a model.Platform.
type Platform struct {
	MockVersion                func() int
	MockDefaultTrustAlgorithm  func() string
	MockNewTrustManagerFactory func(algorithm string) (model.TrustManagerFactory, error)
	MockNewSecureContext       func(protocol string) (model.SecureContext, error)
}

var _ model.Platform = &Platform{}

// Version calls MockVersion.
func (p *Platform) Version() int {
	return p.MockVersion()
}

// DefaultTrustAlgorithm calls MockDefaultTrustAlgorithm.
func (p *Platform) DefaultTrustAlgorithm() string {
	return p.MockDefaultTrustAlgorithm()
}

// NewTrustManagerFactory calls MockNewTrustManagerFactory.
func (p *Platform) NewTrustManagerFactory(algorithm string) (model.TrustManagerFactory, error) {
	return p.MockNewTrustManagerFactory(algorithm)
}

// NewSecureContext calls MockNewSecureContext.
func (p *Platform) NewSecureContext(protocol string) (model.SecureContext, error) {
	return p.MockNewSecureContext(protocol)
}
