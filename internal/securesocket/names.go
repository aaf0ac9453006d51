package securesocket

import (
	"crypto/tls"
	"fmt"
	"slices"
)

// Protocol names.
const (
	ProtocolTLSv1  = "TLSv1"
	ProtocolTLSv11 = "TLSv1.1"
	ProtocolTLSv12 = "TLSv1.2"
	ProtocolTLSv13 = "TLSv1.3"
)

// AllProtocols contains all the protocol names we know about
// sorted from the oldest to the newest version.
var AllProtocols = []string{
	ProtocolTLSv1,
	ProtocolTLSv11,
	ProtocolTLSv12,
	ProtocolTLSv13,
}

var (
	protocolVersion = map[string]uint16{
		ProtocolTLSv1:  tls.VersionTLS10,
		ProtocolTLSv11: tls.VersionTLS11,
		ProtocolTLSv12: tls.VersionTLS12,
		ProtocolTLSv13: tls.VersionTLS13,
	}

	versionProtocol = map[uint16]string{
		tls.VersionTLS10: ProtocolTLSv1,
		tls.VersionTLS11: ProtocolTLSv11,
		tls.VersionTLS12: ProtocolTLSv12,
		tls.VersionTLS13: ProtocolTLSv13,
		0:                "", // guarantee correct behaviour
	}
)

// ProtocolVersion maps a protocol name to the crypto/tls version. The
// boolean result is false if the name is unknown.
func ProtocolVersion(name string) (uint16, bool) {
	version, found := protocolVersion[name]
	return version, found
}

// ProtocolName returns the protocol name of a crypto/tls version. If the
// value is zero, we return the empty string. If the value is unknown, we
// return `TLS_VERSION_UNKNOWN_ddd` where `ddd` is the numeric value.
func ProtocolName(version uint16) string {
	if name, found := versionProtocol[version]; found {
		return name
	}
	return fmt.Sprintf("TLS_VERSION_UNKNOWN_%d", version)
}

// CipherSuiteName returns the name of a cipher suite. If value is zero,
// we return the empty string. Unknown values map to the hex representation
// returned by tls.CipherSuiteName.
func CipherSuiteName(value uint16) string {
	if value == 0 {
		return ""
	}
	return tls.CipherSuiteName(value)
}

var (
	cipherSuiteIDs     = map[string]uint16{}
	secureCipherSuites []string
	allCipherSuites    []string
)

func init() {
	for _, cs := range tls.CipherSuites() {
		cipherSuiteIDs[cs.Name] = cs.ID
		secureCipherSuites = append(secureCipherSuites, cs.Name)
	}
	allCipherSuites = append(allCipherSuites, secureCipherSuites...)
	for _, cs := range tls.InsecureCipherSuites() {
		cipherSuiteIDs[cs.Name] = cs.ID
		allCipherSuites = append(allCipherSuites, cs.Name)
	}
}

// CipherSuiteID maps a cipher suite name to its ID. The boolean result
// is false if crypto/tls does not implement the suite.
func CipherSuiteID(name string) (uint16, bool) {
	id, found := cipherSuiteIDs[name]
	return id, found
}

// SecureCipherSuites returns the names of the cipher suites crypto/tls
// considers secure. Every call returns a distinct slice.
func SecureCipherSuites() []string {
	return slices.Clone(secureCipherSuites)
}

// AllCipherSuites returns the names of all the cipher suites implemented
// by crypto/tls, secure ones first. Every call returns a distinct slice.
func AllCipherSuites() []string {
	return slices.Clone(allCipherSuites)
}

// versionRange maps a set of protocol names to the [min, max] range of
// crypto/tls versions. crypto/tls cannot express holes in the range, so
// enabling TLSv1 and TLSv1.2 also enables TLSv1.1.
func versionRange(protocols []string) (minVersion, maxVersion uint16) {
	for _, name := range protocols {
		version, found := protocolVersion[name]
		if !found {
			continue
		}
		if minVersion == 0 || version < minVersion {
			minVersion = version
		}
		if version > maxVersion {
			maxVersion = version
		}
	}
	return
}
