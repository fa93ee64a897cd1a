//go:build darwin || linux

// Shared helpers for the purego engine binding.

package bassdts

import (
	"os"
	"path/filepath"
	"unsafe"
)

// goStringFromPtr converts a NUL-terminated C string to a Go string.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	length := 0
	for *(*byte)(unsafe.Add(p, length)) != 0 {
		length++
	}
	if length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), length))
}

// cString returns s as a NUL-terminated byte slice. The caller keeps the
// slice alive for the duration of the native call.
func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// cBool converts a C BOOL.
func cBool(v int32) bool { return v != 0 }

func boolToC(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

// findModuleRoot walks up the directory tree from the current working directory
// to find the module root (directory containing go.mod).
func findModuleRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
