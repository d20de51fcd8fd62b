// Package dl opens shared libraries, resolves their exported symbols and
// closes them again without cgo.
//
// On POSIX systems it is backed by purego's dlopen family; on Windows by
// LoadLibrary, GetProcAddress and FreeLibrary. The two backends report the
// same error kinds. Only the availability of diagnostic text differs.
package dl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath is returned by Open for an empty path.
	ErrEmptyPath = errors.New("library path is empty")
	// ErrNotFound is returned by Open when the library file does not exist.
	ErrNotFound = errors.New("library not found")
	// ErrLoadFailed is returned by Open when the OS loader rejected the library.
	ErrLoadFailed = errors.New("failed to load library")
	// ErrSymbolNotFound is returned by Symbol when the library does not export the name.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrCloseFailed is returned by Close when the OS loader could not unmap the library.
	ErrCloseFailed = errors.New("failed to close library")
)

// Error is a diagnostic message reported by the platform loader.
type Error string

func (e Error) Error() string { return string(e) }

// ErrorText returns the platform diagnostic carried by err, or the empty
// string when the platform did not provide one.
func ErrorText(err error) string {
	var e Error
	if errors.As(err, &e) {
		return string(e)
	}
	return ""
}

// Lib represents an open handle to a dynamically loaded library.
//
// A Lib must not be used after Close has returned nil. Function pointers
// obtained from Symbol are invalid after Close and must not be called.
type Lib struct {
	handle uintptr
	name   string
}

// Open maps the library at path into the process.
//
// A bare file name is looked up using the platform search rules, an absolute
// path is used as is and a relative path is resolved against the current
// working directory. flags is a combination of the RTLD constants and is
// ignored on Windows.
func Open(path string, flags int) (*Lib, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	handle, err := loadLibrary(path, flags)
	if err != nil || handle == 0 {
		kind := ErrLoadFailed
		if isNotExist(path, err) {
			kind = ErrNotFound
		}
		if err == nil {
			err = Error(fmt.Sprintf("%s: loader returned a null handle", path))
		}
		return nil, fmt.Errorf("%w: %s: %w", kind, path, diagnostic(err))
	}

	return &Lib{handle: handle, name: path}, nil
}

// Name returns the name the library was opened with.
func (l *Lib) Name() string { return l.name }

// Handle returns the native handle, or 0 once the library has been closed.
func (l *Lib) Handle() uintptr {
	if l == nil {
		return 0
	}
	return l.handle
}

// Symbol returns the address of the exported symbol name. A failed lookup
// leaves the library open.
func (l *Lib) Symbol(name string) (uintptr, error) {
	if l == nil || l.handle == 0 {
		return 0, fmt.Errorf("%w: %s: library is not open", ErrSymbolNotFound, name)
	}

	sym, err := getSymbol(l.handle, name)
	if err != nil || sym == 0 {
		if err == nil {
			err = Error(fmt.Sprintf("%s: resolved to a null address", name))
		}
		return 0, fmt.Errorf("%w: %s in %s: %w", ErrSymbolNotFound, name, l.name, diagnostic(err))
	}
	return sym, nil
}

// Close unmaps the library. Closing a closed library is a no-op. When the
// platform loader fails, the handle is kept so the caller may inspect it.
func (l *Lib) Close() error {
	if l == nil || l.handle == 0 {
		return nil
	}
	if err := closeLibrary(l.handle); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCloseFailed, l.name, diagnostic(err))
	}
	l.handle = 0
	return nil
}

// diagnostic converts a backend error into one whose message is reachable
// through ErrorText, keeping the original error in the chain.
func diagnostic(err error) error {
	var e Error
	if errors.As(err, &e) {
		return err
	}
	return diagnosticError{text: Error(err.Error()), cause: err}
}

type diagnosticError struct {
	text  Error
	cause error
}

func (d diagnosticError) Error() string { return string(d.text) }

func (d diagnosticError) Unwrap() []error { return []error{d.text, d.cause} }

func isNotExist(path string, err error) bool {
	if isModNotFound(err) {
		return true
	}
	// Bare names are resolved through the search path, so a failed stat
	// would not mean anything for them.
	if filepath.Base(path) == path {
		return false
	}
	_, statErr := os.Stat(path)
	return errors.Is(statErr, os.ErrNotExist)
}
