package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/modhost/internal/testutil"
)

type hostDir struct {
	root   string
	config string
}

// setupHostDir writes a configuration whose storage root is a fresh temp
// directory.
func setupHostDir(t *testing.T) hostDir {
	t.Helper()
	root := t.TempDir()
	cfgPath := filepath.Join(root, "modhost.yaml")
	content := fmt.Sprintf("app:\n  name: shop\n  env: testing\nstorage:\n  root: %s\nlog:\n  level: debug\n  format: console\n", root)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	return hostDir{root: root, config: cfgPath}
}

// execute runs the CLI against dir with separate stdout and stderr buffers.
func (d hostDir) execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", d.config}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (d hostDir) writePackage(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	return testutil.WriteZip(t, afero.NewOsFs(), filepath.Join(d.root, name), files)
}

func luaEntry(name, version string) string {
	return fmt.Sprintf("return {\n  name = %q,\n  version = %q,\n  description = \"A %s module\",\n  priority = 10,\n}\n", name, version, name)
}

func blogPackage(t *testing.T, d hostDir) string {
	t.Helper()
	return d.writePackage(t, "blog.zip", map[string]string{
		"Blog/Blog.lua":       luaEntry("Blog", "1.0.0"),
		"Blog/public/Blog.js": "console.log('blog')",
	})
}
