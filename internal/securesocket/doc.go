// Package securesocket implements secure sockets, their factories and
// the contexts creating such factories on top of crypto/tls.
//
// A [*Context] is created for a protocol name and carries the set of
// protocols the platform enables by default on new sockets. This set
// may be narrower than the set of supported protocols, which is how
// some platforms end up negotiating only TLSv1 even though TLSv1.2
// is available. Sockets expose setters to change the enabled protocols
// and cipher suites before the handshake starts.
package securesocket
