//go:build !windows

package dl

import (
	"sync"

	"github.com/ebitengine/purego"
)

const (
	RTLDLazy   = purego.RTLD_LAZY
	RTLDNow    = purego.RTLD_NOW
	RTLDGlobal = purego.RTLD_GLOBAL
	RTLDLocal  = purego.RTLD_LOCAL
)

func loadLibrary(path string, flags int) (uintptr, error) {
	libHandle, err := purego.Dlopen(path, flags)
	if err != nil || libHandle == 0 {
		return 0, err
	}
	return libHandle, nil
}

func getSymbol(handle uintptr, symbol string) (uintptr, error) {
	return purego.Dlsym(handle, symbol)
}

func closeLibrary(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return purego.Dlclose(handle)
}

func isModNotFound(error) bool { return false }

var (
	dlerrorOnce sync.Once
	dlerrorFunc func() uintptr
)

// LastError returns and clears the most recent dlerror diagnostic. Open,
// Symbol and Close already consume the diagnostic into the error they
// return, so after one of those failed LastError usually reports "".
//
// The dlerror state belongs to the calling OS thread. A goroutine may move
// to another thread between a failed call and LastError, so callers that
// rely on it must bracket both with runtime.LockOSThread and
// runtime.UnlockOSThread. Prefer ErrorText on the returned error.
func LastError() string {
	dlerrorOnce.Do(func() {
		sym, err := purego.Dlsym(purego.RTLD_DEFAULT, "dlerror")
		if err != nil || sym == 0 {
			return
		}
		purego.RegisterFunc(&dlerrorFunc, sym)
	})
	if dlerrorFunc == nil {
		return ""
	}
	return GoString(dlerrorFunc())
}
