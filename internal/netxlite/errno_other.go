//go:build !unix && !windows

package netxlite

// classifySyscallError returns an empty string on systems
// for which we do not map system call errors (e.g., wasm).
func classifySyscallError(err error) string {
	return ""
}
