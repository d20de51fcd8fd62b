//go:build windows

package dl

import (
	"errors"

	"golang.org/x/sys/windows"
)

// The RTLD flags have no Windows counterpart and are accepted for
// source compatibility only.
const (
	RTLDLazy   = 0
	RTLDNow    = 0
	RTLDGlobal = 0
	RTLDLocal  = 0
)

func loadLibrary(path string, _ int) (uintptr, error) {
	handle, err := windows.LoadLibrary(path)
	if err != nil || handle == 0 {
		return 0, err
	}
	return uintptr(handle), nil
}

func getSymbol(handle uintptr, symbol string) (uintptr, error) {
	proc, err := windows.GetProcAddress(windows.Handle(handle), symbol)
	if err != nil {
		return 0, err
	}
	return proc, nil
}

func closeLibrary(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return windows.FreeLibrary(windows.Handle(handle))
}

func isModNotFound(err error) bool {
	return errors.Is(err, windows.ERROR_MOD_NOT_FOUND)
}

// LastError always returns "" on Windows. The loader reports failures
// through the error values returned by Open, Symbol and Close.
func LastError() string { return "" }
