package model

//
// Platform services
//

import (
	"crypto/x509"
)

// TrustManager validates peers. It is a marker interface: the only
// capability we know how to use is X509TrustManager.
type TrustManager interface {
	// Algorithm returns the name of the algorithm that created the manager.
	Algorithm() string
}

// X509TrustManager is a TrustManager validating X.509 certificate chains.
type X509TrustManager interface {
	TrustManager

	// CheckServerTrusted validates the chain presented by the server. The
	// first certificate is the leaf, the others are intermediates.
	CheckServerTrusted(chain []*x509.Certificate, serverName string) error
}

// TrustManagerFactory creates TrustManagers for a given algorithm.
type TrustManagerFactory interface {
	// Init initializes the factory with the given trust store. A nil
	// store means the platform default trust store.
	Init(store *x509.CertPool) error

	// TrustManagers returns the managers. Calling this method before
	// Init returns an error.
	TrustManagers() ([]TrustManager, error)
}

// SecureContext is a TLS context for a given protocol name.
type SecureContext interface {
	// Protocol returns the protocol name used to create the context.
	Protocol() string

	// Init initializes the context with the given trust manager.
	Init(tm X509TrustManager) error

	// SocketFactory returns the factory creating sockets bound to this
	// context. Calling this method before Init returns an error.
	SocketFactory() (SocketFactory, error)
}

// Platform is the operating system on which we run.
type Platform interface {
	// Version returns the platform version identifier.
	Version() int

	// DefaultTrustAlgorithm returns the default trust manager algorithm.
	DefaultTrustAlgorithm() string

	// NewTrustManagerFactory creates a factory for the given algorithm.
	NewTrustManagerFactory(algorithm string) (TrustManagerFactory, error)

	// NewSecureContext creates a context for the given protocol name. The
	// protocol name does not restrict which protocols are enabled by default
	// on the sockets created by the context: that depends on the platform.
	NewSecureContext(protocol string) (SecureContext, error)
}
