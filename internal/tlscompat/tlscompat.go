package tlscompat

import (
	"errors"
	"fmt"

	"github.com/gotev/tlscompat/internal/connspec"
	"github.com/gotev/tlscompat/internal/model"
	"github.com/gotev/tlscompat/internal/securesocket"
)

// Range is a closed interval of platform versions.
type Range struct {
	Min int
	Max int
}

// Contains returns whether version belongs to the range.
func (r Range) Contains(version int) bool {
	return version >= r.Min && version <= r.Max
}

// AffectedRange contains the platform versions needing the patch.
var AffectedRange = Range{Min: 16, Max: 21}

// TargetProtocol is the protocol the patch enables.
const TargetProtocol = securesocket.ProtocolTLSv12

// FailureKind is the kind of a [*Failure].
type FailureKind string

const (
	// EnvironmentMismatch means the platform did not return exactly
	// one trust manager capable of validating X.509 chains.
	EnvironmentMismatch = FailureKind("environment_mismatch")

	// ProviderInitializationFailure means the platform failed to
	// initialize the trust managers or the secure context.
	ProviderInitializationFailure = FailureKind("provider_initialization_failure")
)

var (
	// ErrUnexpectedTrustManagers is the error of an [EnvironmentMismatch].
	ErrUnexpectedTrustManagers = errors.New("tlscompat: unexpected trust managers")

	// ErrProviderPanic wraps a panic raised by the platform.
	ErrProviderPanic = errors.New("tlscompat: platform panic")
)

// Failure explains why we could not install the patch.
type Failure struct {
	Kind FailureKind
	Err  error
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("tlscompat: %s: %s", f.Kind, f.Err.Error())
}

// Unwrap allows using errors.Is and errors.As with the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// ClientBuilder is the client builder mutated by [Apply]. Methods return
// the builder itself to allow chaining.
type ClientBuilder[B any] interface {
	SecureSocketFactory(factory model.SocketFactory, tm model.X509TrustManager) B
	ConnectionSpecs(specs ...connspec.ConnectionSpec) B
}

// Result is the result of [Apply].
type Result[B any] struct {
	// Builder is the builder passed to Apply.
	Builder B

	// Applied indicates whether we installed the patch.
	Applied bool

	// Failure is non-nil when we tried and failed to install the
	// patch. The builder may have been partially modified.
	Failure *Failure
}

// ConnectionSpecs returns the specs used by the patch: a spec derived
// from [connspec.ModernTLS] followed by the given fallbacks in order.
func ConnectionSpecs(fallbacks ...connspec.ConnectionSpec) []connspec.ConnectionSpec {
	specs := []connspec.ConnectionSpec{connspec.NewBuilder(connspec.ModernTLS).Build()}
	return append(specs, fallbacks...)
}

// Apply installs the patch into builder when the platform version belongs to
// the [AffectedRange]. It installs a socket factory enabling [TargetProtocol],
// the platform default trust manager, and the [ConnectionSpecs] for the given
// fallbacks, replacing the builder's previous specs.
//
// Apply does not return errors: failures are reported by the result and
// the builder is returned in any case.
func Apply[B ClientBuilder[B]](p model.Platform, builder B, fallbacks ...connspec.ConnectionSpec) (result *Result[B]) {
	result = &Result[B]{Builder: builder}
	defer func() {
		if r := recover(); r != nil {
			result.Applied = false
			result.Failure = &Failure{
				Kind: ProviderInitializationFailure,
				Err:  fmt.Errorf("%w: %v", ErrProviderPanic, r),
			}
		}
	}()
	if !AffectedRange.Contains(p.Version()) {
		return
	}
	if failure := install(p, builder, fallbacks); failure != nil {
		result.Failure = failure
		return
	}
	result.Applied = true
	return
}

// install implements Apply for a platform in the affected range.
func install[B ClientBuilder[B]](p model.Platform, builder B, fallbacks []connspec.ConnectionSpec) *Failure {
	providerFailure := func(err error) *Failure {
		return &Failure{Kind: ProviderInitializationFailure, Err: err}
	}
	tmf, err := p.NewTrustManagerFactory(p.DefaultTrustAlgorithm())
	if err != nil {
		return providerFailure(err)
	}
	if err := tmf.Init(nil); err != nil {
		return providerFailure(err)
	}
	managers, err := tmf.TrustManagers()
	if err != nil {
		return providerFailure(err)
	}
	tm, err := x509TrustManager(managers)
	if err != nil {
		return &Failure{Kind: EnvironmentMismatch, Err: err}
	}
	sc, err := p.NewSecureContext(TargetProtocol)
	if err != nil {
		return providerFailure(err)
	}
	if err := sc.Init(tm); err != nil {
		return providerFailure(err)
	}
	factory, err := sc.SocketFactory()
	if err != nil {
		return providerFailure(err)
	}
	builder.SecureSocketFactory(NewProtocolEnablingSocketFactory(factory, TargetProtocol), tm)
	builder.ConnectionSpecs(ConnectionSpecs(fallbacks...)...)
	return nil
}

// x509TrustManager returns the only manager in managers, provided that
// it is a [model.X509TrustManager].
func x509TrustManager(managers []model.TrustManager) (model.X509TrustManager, error) {
	if len(managers) != 1 {
		return nil, fmt.Errorf("%w: expected one trust manager, got %d", ErrUnexpectedTrustManagers, len(managers))
	}
	tm, good := managers[0].(model.X509TrustManager)
	if !good {
		return nil, fmt.Errorf("%w: %T is not an X509 trust manager", ErrUnexpectedTrustManagers, managers[0])
	}
	return tm, nil
}

// Patch is like [Apply] but logs failures using logger and only
// returns the builder.
func Patch[B ClientBuilder[B]](
	logger model.Logger, p model.Platform, builder B, fallbacks ...connspec.ConnectionSpec) B {
	logger = model.ValidLoggerOrDefault(logger)
	result := Apply(p, builder, fallbacks...)
	switch {
	case result.Failure != nil:
		logger.Warnf("tlscompat: cannot enable %s: %s", TargetProtocol, result.Failure.Error())
	case result.Applied:
		logger.Debugf("tlscompat: enabled %s for platform version %d", TargetProtocol, p.Version())
	}
	return result.Builder
}
