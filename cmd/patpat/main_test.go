package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadSourceFromFile(t *testing.T) {
	path := writeTemp(t, "hello.pp", `"Hello, world!"`)
	src, err := readSource(path)
	require.NoError(t, err)
	assert.Equal(t, `"Hello, world!"`, src)
}

func TestReadSourceMissingFile(t *testing.T) {
	_, err := readSource(filepath.Join(t.TempDir(), "does-not-exist.pp"))
	assert.Error(t, err)
}

func TestRunHelpReturnsZero(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--help"}))
}

func TestRunUnknownFlagReturnsOne(t *testing.T) {
	assert.Equal(t, 1, run([]string{"--nonexistent"}))
}

func TestRunUnreadableFileReturnsSeven(t *testing.T) {
	assert.Equal(t, 7, run([]string{filepath.Join(t.TempDir(), "missing.pp")}))
}

func TestRunSucceedsOnHelloWorld(t *testing.T) {
	path := writeTemp(t, "hello.pp", `"Hello, world!"`)
	assert.Equal(t, 0, run([]string{path}))
}

// TestRunSurfacesPipelineErrorCode exercises the compile-error exit-code
// contract: an aborting pipeline exits with the error's own stable code,
// here error 107 (operator-precedence mix).
func TestRunSurfacesPipelineErrorCode(t *testing.T) {
	path := writeTemp(t, "bad.pp", "1 + 2 - 3")
	assert.Equal(t, 107, run([]string{path}))
}

func TestRunUnexpectedExtraArgumentReturnsOne(t *testing.T) {
	path := writeTemp(t, "hello.pp", `"Hello, world!"`)
	assert.Equal(t, 1, run([]string{path, "extra"}))
}
