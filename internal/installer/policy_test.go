package installer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionOf(t *testing.T) {
	cases := map[string]string{
		"Blog.lua":          "lua",
		"public/STYLE.CSS":  "css",
		"archive.tar.gz":    "gz",
		".env":              "env",
		"config/.gitignore": "gitignore",
		"Makefile":          "",
		".config.json":      "json",
	}
	for name, want := range cases {
		assert.Equal(t, want, extensionOf(name), name)
	}
}

func TestPolicyCompileNormalizesExtensions(t *testing.T) {
	p := DefaultPolicy()
	p.PublicExtensions = []string{".CSS", " js "}
	p.PrivateExtensions = []string{"Lua"}
	p.SourceExtension = ".LUA"

	compiled, err := p.compile()
	require.NoError(t, err)
	assert.Equal(t, "lua", compiled.SourceExtension)
	assert.True(t, compiled.allowed.Contains("css"))
	assert.True(t, compiled.allowed.Contains("js"))
	assert.True(t, compiled.private.Contains("lua"))
	assert.False(t, compiled.public.Contains("lua"))
}

func TestPolicyCompileRejectsNestedDirs(t *testing.T) {
	p := DefaultPolicy()
	p.PublicDir = "web/public"
	_, err := p.compile()
	require.Error(t, err)

	p = DefaultPolicy()
	p.VendorDir = ""
	_, err = p.compile()
	require.Error(t, err)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := NewKeyedMutex()
	unlock := locks.Lock("Blog")

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("Blog")
		close(acquired)
		release()
	}()

	otherDone := make(chan struct{})
	go func() {
		locks.Lock("Shop")()
		close(otherDone)
	}()
	<-otherDone

	select {
	case <-acquired:
		t.Fatal("second lock on the same key acquired while held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	unlock()
	<-acquired

	assert.Eventually(t, func() bool { return locks.Len() == 0 }, time.Second, 5*time.Millisecond)
}
