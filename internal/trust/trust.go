// Package trust contains trust managers and their factories.
package trust

import (
	"crypto/x509"
	"errors"
	"fmt"
	"sync"

	"github.com/gotev/tlscompat/internal/model"
)

// AlgorithmPKIX is the name of the X.509 path validation algorithm and
// the only algorithm we implement.
const AlgorithmPKIX = "PKIX"

var (
	// ErrNoSuchAlgorithm indicates that we do not implement an algorithm.
	ErrNoSuchAlgorithm = errors.New("trust: no such algorithm")

	// ErrNotInitialized indicates that you did not call Init.
	ErrNotInitialized = errors.New("trust: factory not initialized")

	// ErrEmptyChain indicates that the peer did not present any certificate.
	ErrEmptyChain = errors.New("trust: empty certificate chain")
)

// Factory is the [model.TrustManagerFactory] implementation.
type Factory struct {
	// defaultStore returns the store to use when Init receives nil.
	defaultStore func() (*x509.CertPool, error)

	// mu protects managers.
	mu sync.Mutex

	// managers is nil until Init succeeds.
	managers []model.TrustManager
}

var _ model.TrustManagerFactory = &Factory{}

// NewFactory creates a factory for the given algorithm. The defaultStore
// function returns the platform default trust store, used when Init is
// called with a nil store. When defaultStore is nil, we use the system
// certificate pool.
func NewFactory(algorithm string, defaultStore func() (*x509.CertPool, error)) (*Factory, error) {
	if algorithm != AlgorithmPKIX {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchAlgorithm, algorithm)
	}
	if defaultStore == nil {
		defaultStore = x509.SystemCertPool
	}
	return &Factory{defaultStore: defaultStore}, nil
}

// Init implements model.TrustManagerFactory.
func (f *Factory) Init(store *x509.CertPool) error {
	if store == nil {
		var err error
		if store, err = f.defaultStore(); err != nil {
			return err
		}
	}
	defer f.mu.Unlock()
	f.mu.Lock()
	f.managers = []model.TrustManager{NewX509TrustManager(store)}
	return nil
}

// TrustManagers implements model.TrustManagerFactory.
func (f *Factory) TrustManagers() ([]model.TrustManager, error) {
	defer f.mu.Unlock()
	f.mu.Lock()
	if f.managers == nil {
		return nil, ErrNotInitialized
	}
	return append([]model.TrustManager{}, f.managers...), nil
}

// X509TrustManager validates chains against a cert pool.
type X509TrustManager struct {
	roots *x509.CertPool
}

var _ model.X509TrustManager = &X509TrustManager{}

// NewX509TrustManager creates a trust manager trusting the given roots.
func NewX509TrustManager(roots *x509.CertPool) *X509TrustManager {
	return &X509TrustManager{roots: roots}
}

// Algorithm implements model.TrustManager.
func (tm *X509TrustManager) Algorithm() string {
	return AlgorithmPKIX
}

// CheckServerTrusted implements model.X509TrustManager.
func (tm *X509TrustManager) CheckServerTrusted(chain []*x509.Certificate, serverName string) error {
	if len(chain) <= 0 {
		return ErrEmptyChain
	}
	opts := x509.VerifyOptions{
		DNSName:       serverName,
		Intermediates: x509.NewCertPool(),
		Roots:         tm.roots,
	}
	for _, cert := range chain[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, err := chain[0].Verify(opts)
	return err
}
