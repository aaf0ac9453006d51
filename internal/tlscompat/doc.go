// Package tlscompat enables TLSv1.2 on platform versions whose secure
// sockets only enable TLSv1 by default, even though the provider supports
// TLSv1.2.
//
// Use [Apply] or [Patch] to install the patch into an HTTP client builder
// before building the client. Outside of [AffectedRange] both functions
// leave the builder unchanged. Failing to install the patch is never
// fatal: the builder keeps its previous configuration.
package tlscompat
