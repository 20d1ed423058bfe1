package container

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type service struct{ name string }

type keyedModule struct{ id string }

func (k *keyedModule) ContainerKey() string { return "script:" + k.id }

func TestSingletonKeepsFirstValue(t *testing.T) {
	t.Parallel()

	c := New()
	first := &service{name: "first"}
	require.True(t, c.Bind(first))
	require.False(t, c.Bind(&service{name: "second"}))

	got, ok := Get[*service](c)
	require.True(t, ok)
	require.Same(t, first, got)
	require.Equal(t, "*container.service", KeyFor(first))
}

func TestKeyedValuesShareATypeWithoutColliding(t *testing.T) {
	t.Parallel()

	c := New()
	require.True(t, c.Bind(&keyedModule{id: "Blog"}))
	require.True(t, c.Bind(&keyedModule{id: "Shop"}))
	require.Equal(t, []string{"script:Blog", "script:Shop"}, c.Keys())

	c.Forget("script:Blog")
	require.False(t, c.Has("script:Blog"))
}

func TestReplaceOverwrites(t *testing.T) {
	t.Parallel()

	c := New()
	c.Replace("answer", 41)
	c.Replace("answer", 42)
	v, ok := c.Resolve("answer")
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestMustGetPanicsWhenUnbound(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { MustGet[*service](New()) })
}
