package plugin

import (
	"errors"

	"github.com/amikos-tech/pure-plugin/dl"
)

var (
	// ErrConfiguration is returned when the loader is asked to load an
	// empty or otherwise unusable library name.
	ErrConfiguration = errors.New("invalid loader configuration")
	// ErrLoadFailed is returned when the library could not be mapped.
	ErrLoadFailed = errors.New("plugin load failed")
	// ErrUnloadFailed is returned when the library could not be unmapped.
	ErrUnloadFailed = errors.New("plugin unload failed")
	// ErrSymbolNotFound is returned when a factory symbol is not exported.
	ErrSymbolNotFound = dl.ErrSymbolNotFound

	// ErrNotLoaded is returned by Instance and Symbol before a successful Load.
	ErrNotLoaded = errors.New("plugin is not loaded")
	// ErrLoaded is returned by SetName while a library is loaded.
	ErrLoaded = errors.New("plugin is loaded")

	// ErrProtocol is returned when a loaded library does not honour the
	// factory protocol. A correctly built library never produces it.
	ErrProtocol = errors.New("factory protocol violation")
	// ErrNilFacade is returned when the creation symbol returns NULL.
	ErrNilFacade = errors.New("creation symbol returned a null facade")
	// ErrIncompatibleABI is returned when the facade reports an unknown ABI version.
	ErrIncompatibleABI = errors.New("incompatible facade ABI version")
	// ErrIncompatibleVersion is returned when the facade version does not
	// satisfy the constraint set with WithVersionConstraint.
	ErrIncompatibleVersion = errors.New("incompatible plugin version")
)
