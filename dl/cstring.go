package dl

import "unsafe"

const (
	// Addresses in the first page are never valid string pointers.
	minValidAddress = 4096
	// Facade names and loader diagnostics are short; anything longer
	// than this points at corrupted memory.
	maxStringLen = 1 << 20
)

// GoString converts a NUL-terminated C string to a Go string. It returns ""
// for a null or otherwise invalid low address.
func GoString(ptr uintptr) string {
	if ptr < minValidAddress {
		return ""
	}

	p := unsafe.Pointer(ptr)
	n := 0
	for n < maxStringLen && *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
