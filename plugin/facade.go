package plugin

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/amikos-tech/pure-plugin/dl"
	"github.com/amikos-tech/pure-plugin/version"
)

// FacadeABIVersion is the layout version of struct plugin_facade understood
// by BindFacade.
const FacadeABIVersion = 1

// Facade is the capability every loadable library exposes.
//
// A Facade returned by a Loader is borrowed from the library. It must not be
// used once the Loader has unloaded the library by Unload, Close or a
// reloading Load. Dropping the Loader alone does not unload the library
// while the Facade is still reachable.
type Facade interface {
	Name() string
	Version() version.Version
}

// BindFunc converts the pointer returned by the creation symbol into a T.
type BindFunc[T any] func(ptr uintptr) (T, error)

// facadeTable mirrors struct plugin_facade in include/plugin_facade.h.
type facadeTable struct {
	abiVersion uint32
	name       uintptr
	version    uintptr
}

type nativeFacade struct {
	ptr     uintptr
	name    func(uintptr) uintptr
	version func(uintptr) uintptr
	owner   *session
}

// BindFacade binds a struct plugin_facade pointer to a Facade whose methods
// call through the library's method table.
func BindFacade(ptr uintptr) (Facade, error) {
	if ptr == 0 {
		return nil, ErrNilFacade
	}

	table := (*facadeTable)(unsafe.Pointer(ptr))
	if table.abiVersion != FacadeABIVersion {
		return nil, fmt.Errorf("%w: library reports %d, loader supports %d", ErrIncompatibleABI, table.abiVersion, FacadeABIVersion)
	}
	if table.name == 0 || table.version == 0 {
		return nil, fmt.Errorf("%w: facade method table has a null entry", ErrProtocol)
	}

	return &nativeFacade{
		ptr:     ptr,
		name:    bindFunc[func(uintptr) uintptr](table.name),
		version: bindFunc[func(uintptr) uintptr](table.version),
	}, nil
}

func (f *nativeFacade) retain(s *session) { f.owner = s }

func (f *nativeFacade) Name() string {
	name := dl.GoString(f.name(f.ptr))
	runtime.KeepAlive(f)
	return name
}

func (f *nativeFacade) Version() version.Version {
	defer runtime.KeepAlive(f)
	p := f.version(f.ptr)
	if p == 0 {
		return version.Version{}
	}
	v := (*[4]uint32)(unsafe.Pointer(p))
	return version.New(v[0], v[1], v[2], v[3])
}
