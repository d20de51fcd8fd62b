package plugin

// State is the lifecycle state of a Loader.
type State int

const (
	// StateUnloaded means no library is open.
	StateUnloaded State = iota
	// StateLoaded means the library is open but its facade has not been created.
	StateLoaded
	// StateInstantiated means the library is open and its facade is cached.
	StateInstantiated
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateInstantiated:
		return "instantiated"
	default:
		return "unknown"
	}
}
