package plugin

//go:generate go run ../tools/gen_header.go -o ../include/plugin_facade.h

import (
	"github.com/ebitengine/purego"
)

// Factory protocol symbol names. A loadable library exports both as
// unmangled functions taking no arguments.
const (
	// CreateSymbol returns the library's facade, creating it on first call
	// and returning the same instance until DestroySymbol is called.
	CreateSymbol = "createPluginFacade"
	// DestroySymbol releases the facade created by CreateSymbol and resets
	// the library's cache. It is a no-op when no facade exists.
	DestroySymbol = "destroyPluginFacade"
)

// bindFunc turns the foreign function at fn into a Go function of type F.
// The real signature is not checked; it is trusted to match F as the
// factory protocol requires. fn must be non-zero.
//
// This is the only place where an address resolved from a library becomes
// callable.
func bindFunc[F any](fn uintptr) F {
	var f F
	purego.RegisterFunc(&f, fn)
	return f
}

// caller invokes resolved factory symbols.
type caller interface {
	create(fn uintptr) uintptr
	destroy(fn uintptr)
}

type nativeCaller struct{}

func (nativeCaller) create(fn uintptr) uintptr {
	return bindFunc[func() uintptr](fn)()
}

func (nativeCaller) destroy(fn uintptr) {
	bindFunc[func()](fn)()
}
