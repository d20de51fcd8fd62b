package dl

import "runtime"

// FileName decorates a bare library name with the platform prefix and
// extension: "example" becomes libexample.so on Linux, libexample.dylib on
// macOS and example.dll on Windows.
func FileName(base string) string {
	switch runtime.GOOS {
	case "windows":
		return base + ".dll"
	case "darwin", "ios":
		return "lib" + base + ".dylib"
	default:
		return "lib" + base + ".so"
	}
}
