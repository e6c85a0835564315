// Package runtimex contains runtime extensions. This package is inspired to
// https://pkg.go.dev/github.com/m-lab/go/rtx, except that it's simpler.
package runtimex

import (
	"errors"
	"fmt"
)

// PanicIfFalse calls panic if assertion is false.
func PanicIfFalse(assertion bool, message string) {
	if !assertion {
		panic(message)
	}
}

// ErrTry is the error wrapped by the panic raised by the Try family.
var ErrTry = errors.New("runtimex.Try failed")

// Try0 calls panic if err is not nil.
func Try0(err error) {
	if err != nil {
		panic(fmt.Errorf("%w: %s", ErrTry, err.Error()))
	}
}

// Try1 is like Try0 but supports functions returning one value and an error.
func Try1[T1 any](v1 T1, err error) T1 {
	Try0(err)
	return v1
}
