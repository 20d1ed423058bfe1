// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Zip builds an in-memory zip archive from name -> content. Names ending in
// "/" become directory entries. Entries are written in sorted order.
func Zip(t testing.TB, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if name[len(name)-1] == '/' {
			continue
		}
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteZip writes a zip built from files to path on fsys and returns path.
func WriteZip(t testing.TB, fsys afero.Fs, path string, files map[string]string) string {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, Zip(t, files), 0o644))
	return path
}

// WriteTree writes each name -> content below root on fsys.
func WriteTree(t testing.TB, fsys afero.Fs, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := root + "/" + name
		require.NoError(t, fsys.MkdirAll(parentOf(path), 0o755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
	}
}

func parentOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
