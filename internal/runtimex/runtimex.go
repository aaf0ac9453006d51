// Package runtimex contains runtime extensions. This package is inspired to
// https://pkg.go.dev/github.com/m-lab/go/rtx, except that it's simpler.
package runtimex

import "fmt"

// PanicOnError calls panic() if err is not nil.
func PanicOnError(err error, message string) {
	if err != nil {
		panic(fmt.Errorf("%s: %w", message, err))
	}
}

// Try0 panics if err is not nil.
func Try0(err error) {
	PanicOnError(err, "Try0")
}

// Try1 is like Try0 but returns the value if err is nil.
func Try1[T any](v T, err error) T {
	PanicOnError(err, "Try1")
	return v
}
