// Package config holds PatPat's process-wide constants and flags, kept as
// its own package so the CLI, the pipeline, and tests all agree on one
// source file extension and one test-mode switch instead of each
// hardcoding their own.
package config

// Version is the current PatPat implementation version.
var Version = "0.1.0"

const SourceFileExt = ".pp"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".pp", ".patpat"}

// TrimSourceExt removes any recognized source extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt reports whether path ends with any recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// IsTestMode, when true, makes cmd/patpat echo the program's final value
// to stderr with a "[test] " prefix. Nothing in this module sets it, so it
// stays false unless an embedder changes it; #test_log output does not
// depend on it.
var IsTestMode = false
