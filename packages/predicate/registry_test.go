package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("contains")
	assert.False(t, ok, "empty registry should not know builtins")

	r.RegisterFunc("always", func(subject any, args ...any) (bool, error) {
		return true, nil
	})

	p, ok := r.Lookup("always")
	require.True(t, ok)
	passed, err := p.Test("anything")
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestRegistry_LastWriteWins(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("flag", func(subject any, args ...any) (bool, error) { return false, nil })
	r.RegisterFunc("flag", func(subject any, args ...any) (bool, error) { return true, nil })

	p, ok := r.Lookup("flag")
	require.True(t, ok)
	passed, err := p.Test(nil)
	require.NoError(t, err)
	assert.True(t, passed)
	assert.Equal(t, []string{"flag"}, r.Names())
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.RegisterFunc("zeta", testNone)
	r.RegisterFunc("alpha", testNone)

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
	assert.True(t, r.Has("alpha"))
	assert.False(t, r.Has("beta"))
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range []string{"contains", "matches", "even", "eq", "json_path", "json_schema", "uuid", "yaml"} {
		assert.True(t, r.Has(name), "missing builtin %s", name)
	}
}

func TestArityError(t *testing.T) {
	r := NewDefaultRegistry()
	p, ok := r.Lookup("contains")
	require.True(t, ok)

	_, err := p.Test("xyz")
	require.Error(t, err)
	var arity *ArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, "contains", arity.Predicate)
	assert.Equal(t, "test 'contains' expects 1 argument, got 0", err.Error())
}
