// Package plugin loads shared libraries that implement the factory protocol
// and exposes their facade.
//
// A library implements the protocol by exporting two functions without
// arguments: createPluginFacade, which returns its facade singleton, and
// destroyPluginFacade, which releases it. See include/plugin_facade.h.
//
// A Loader is not safe for concurrent use.
package plugin

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/amikos-tech/pure-plugin/dl"
	"github.com/amikos-tech/pure-plugin/version"
)

// library is the subset of *dl.Lib used by Loader.
type library interface {
	Symbol(name string) (uintptr, error)
	Close() error
}

type openFunc func(path string, flags int) (library, error)

// session is the native state of one Load: the open library and the facade
// created from it. Facades that keep their session reachable keep the
// library mapped, so a session never points back at its Loader.
type session struct {
	lib    library
	facade uintptr
	call   caller
}

// retainer is implemented by facades that keep their session reachable.
type retainer interface {
	retain(s *session)
}

// destroy calls the destruction symbol.
func (s *session) destroy() error {
	fn, err := s.lib.Symbol(DestroySymbol)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	s.call.destroy(fn)
	return nil
}

// release destroys the facade, if one was created, and closes the library.
// The facade is forgotten even when the close fails.
func (s *session) release() (destroyErr, closeErr error) {
	if s.facade != 0 {
		destroyErr = s.destroy()
		s.facade = 0
	}
	return destroyErr, s.lib.Close()
}

func openLibrary(path string, flags int) (library, error) {
	lib, err := dl.Open(path, flags)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// Loader manages one candidate library: it opens it, creates its facade on
// demand and tears both down again.
//
// The zero value is not usable; create Loaders with New or NewOf.
type Loader[T any] struct {
	name string
	bind BindFunc[T]
	cfg  config

	open openFunc
	call caller

	sess     *session
	instance T
	errMsg   string
}

// New returns a Loader for the library name whose facade follows the native
// struct plugin_facade layout. Its facades keep the library loaded while
// they are reachable, even after the Loader itself is dropped.
//
// A bare file name is looked up using the platform search rules, an absolute
// path is used as is and a relative path is resolved against the current
// working directory.
func New(name string, opts ...Option) (*Loader[Facade], error) {
	return NewOf(name, BindFacade, opts...)
}

// NewOf returns a Loader for the library name whose facade is converted to T
// by bind.
//
// A T produced by bind does not keep the library loaded. Callers must keep
// the Loader reachable, with runtime.KeepAlive if needed, until the last call
// through the facade.
func NewOf[T any](name string, bind BindFunc[T], opts ...Option) (*Loader[T], error) {
	if bind == nil {
		return nil, fmt.Errorf("bind function cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Loader[T]{
		name: name,
		bind: bind,
		cfg:  cfg,
		open: openLibrary,
		call: nativeCaller{},
	}, nil
}

// Name returns the library name or path.
func (l *Loader[T]) Name() string { return l.name }

// SetName changes the library name or path. It fails with ErrLoaded while a
// library is loaded.
func (l *Loader[T]) SetName(name string) error {
	if l.IsLoaded() {
		return fmt.Errorf("%w: cannot rename %q", ErrLoaded, l.name)
	}
	l.name = name
	return nil
}

// IsLoaded reports whether the library is open.
func (l *Loader[T]) IsLoaded() bool { return l.sess != nil }

// State returns the lifecycle state.
func (l *Loader[T]) State() State {
	switch {
	case l.sess == nil:
		return StateUnloaded
	case l.sess.facade != 0:
		return StateInstantiated
	default:
		return StateLoaded
	}
}

// ErrorMessage returns the diagnostic of the most recent failed operation,
// or "" if none failed yet. Successful operations do not clear it.
func (l *Loader[T]) ErrorMessage() string { return l.errMsg }

// Load opens the library. It does not create the facade.
//
// If a library is already loaded it is fully unloaded first, so calling Load
// twice reloads rather than failing. A failure to release the old facade is
// recorded in ErrorMessage but does not stop the reload; a failure to close
// the old library does. On failure the Loader stays unloaded and
// ErrorMessage describes the cause.
//
// A library that is still loaded when it becomes unreachable is unloaded by
// the garbage collector.
func (l *Loader[T]) Load() error {
	if l.IsLoaded() {
		if err := l.Unload(); err != nil && l.IsLoaded() {
			return err
		}
	}

	if strings.TrimSpace(l.name) == "" {
		return l.fail(fmt.Errorf("%w: library name is empty", ErrConfiguration))
	}

	if l.cfg.expectedSHA256 != "" {
		if err := verifyChecksum(l.name, l.cfg.expectedSHA256); err != nil {
			return l.fail(fmt.Errorf("%w: %w", ErrLoadFailed, err))
		}
	}

	lib, err := l.open(l.name, l.cfg.flags)
	if err != nil {
		return l.fail(fmt.Errorf("%w: %w", ErrLoadFailed, err))
	}

	s := &session{lib: lib, call: l.call}
	logger := l.cfg.logger.With(zap.String("library", l.name))
	runtime.SetFinalizer(s, func(s *session) {
		logger.Warn("library unreachable while loaded; unloading")
		if destroyErr, closeErr := s.release(); destroyErr != nil || closeErr != nil {
			logger.Warn("implicit unload failed", zap.Error(errors.Join(destroyErr, closeErr)))
		}
	})

	l.sess = s
	l.log().Debug("library loaded")
	return nil
}

// Instance returns the library's facade, calling the creation symbol on the
// first call after Load. Later calls return the cached facade.
//
// Instance returns ErrNotLoaded, without touching ErrorMessage, before Load.
// A library that does not honour the factory protocol yields an error
// wrapping ErrProtocol.
//
// The returned facade is borrowed. It is valid until the library is
// unloaded and must not be used afterwards. See NewOf for facades that do
// not keep the library loaded on their own.
func (l *Loader[T]) Instance() (T, error) {
	var zero T
	if l.sess == nil {
		return zero, ErrNotLoaded
	}
	if l.sess.facade != 0 {
		return l.instance, nil
	}

	create, err := l.sess.lib.Symbol(CreateSymbol)
	if err != nil {
		return zero, l.fail(fmt.Errorf("%w: %w", ErrProtocol, err))
	}

	ptr := l.call.create(create)
	if ptr == 0 {
		return zero, l.fail(fmt.Errorf("%w: %w", ErrProtocol, ErrNilFacade))
	}

	instance, err := l.bind(ptr)
	if err != nil {
		return zero, l.fail(errors.Join(fmt.Errorf("%w: %w", ErrProtocol, err), l.sess.destroy()))
	}

	if err := l.checkVersion(instance); err != nil {
		return zero, l.fail(errors.Join(err, l.sess.destroy()))
	}

	if r, ok := any(instance).(retainer); ok {
		r.retain(l.sess)
	}
	l.sess.facade = ptr
	l.instance = instance
	l.log().Debug("facade created")
	return instance, nil
}

// Symbol resolves an additional exported symbol of the loaded library. The
// address is valid until the library is unloaded.
func (l *Loader[T]) Symbol(name string) (uintptr, error) {
	if l.sess == nil {
		return 0, ErrNotLoaded
	}
	sym, err := l.sess.lib.Symbol(name)
	if err != nil {
		return 0, l.fail(err)
	}
	return sym, nil
}

// Unload releases the facade through the destruction symbol, if it was
// created, and closes the library. Unloading an unloaded Loader is a no-op.
//
// If the OS loader fails to close the library, the handle is kept and the
// Loader still reports itself as loaded even though the facade is already
// gone. Calling Unload again retries the close.
func (l *Loader[T]) Unload() error {
	if l.sess == nil {
		return nil
	}

	var zero T
	l.instance = zero
	destroyErr, closeErr := l.sess.release()
	if closeErr != nil {
		return l.fail(errors.Join(destroyErr, fmt.Errorf("%w: %w", ErrUnloadFailed, closeErr)))
	}

	runtime.SetFinalizer(l.sess, nil)
	l.sess = nil
	l.log().Debug("library unloaded")
	if destroyErr != nil {
		return l.fail(destroyErr)
	}
	return nil
}

// Close unloads the library. It implements io.Closer.
func (l *Loader[T]) Close() error { return l.Unload() }

func (l *Loader[T]) checkVersion(instance T) error {
	if l.cfg.versionConstraint == "" {
		return nil
	}
	v, ok := any(instance).(interface{ Version() version.Version })
	if !ok {
		return nil
	}
	got := v.Version()
	satisfied, err := got.Satisfies(l.cfg.versionConstraint)
	if err != nil {
		return err
	}
	if !satisfied {
		return fmt.Errorf("%w: %s does not satisfy %q", ErrIncompatibleVersion, got, l.cfg.versionConstraint)
	}
	return nil
}

// fail records err as the most recent diagnostic and returns it.
func (l *Loader[T]) fail(err error) error {
	if text := dl.ErrorText(err); text != "" {
		l.errMsg = text
	} else {
		l.errMsg = err.Error()
	}
	l.log().Warn("plugin operation failed", zap.Error(err))
	return err
}

func (l *Loader[T]) log() *zap.Logger {
	return l.cfg.logger.With(zap.String("library", l.name), zap.Stringer("state", l.State()))
}

func verifyChecksum(path, expected string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open library for checksum verification: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return fmt.Errorf("failed to read library %q: %w", path, err)
	}
	if got := hex.EncodeToString(hasher.Sum(nil)); got != expected {
		return fmt.Errorf("checksum mismatch for %q: expected %s, got %s", path, expected, got)
	}
	return nil
}
