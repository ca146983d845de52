package canonical_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesdk/execd/pkg/canonical"
)

func TestHash_KeyOrderEquivalence(t *testing.T) {
	objA := map[string]any{"b": 1, "a": 2}
	objB := map[string]any{"a": 2, "b": 1}

	hashA, err := canonical.Hash(objA)
	require.NoError(t, err)
	hashB, err := canonical.Hash(objB)
	require.NoError(t, err)

	require.Equal(t, hashA, hashB)
	require.Regexp(t, `^sha256:[0-9a-f]{64}$`, hashA)
}

func TestCanonicalize_ArraysPreserveOrder(t *testing.T) {
	b1, err := canonical.Canonicalize([]any{1.0, 2.0, 3.0})
	require.NoError(t, err)
	b2, err := canonical.Canonicalize([]any{3.0, 2.0, 1.0})
	require.NoError(t, err)

	require.NotEqual(t, string(b1), string(b2))
	require.Equal(t, "[1,2,3]", string(b1))
}

func TestCanonicalize_RejectsNonFiniteNumbers(t *testing.T) {
	_, err := canonical.Canonicalize(math.Inf(1))
	require.Error(t, err)

	_, err = canonical.Canonicalize(math.NaN())
	require.Error(t, err)
}

func TestCanonicalize_NestedObjectKeysSorted(t *testing.T) {
	v := map[string]any{
		"z": 1.0,
		"a": map[string]any{"y": 1.0, "b": 2.0},
	}
	b, err := canonical.Canonicalize(v)
	require.NoError(t, err)
	require.Equal(t, `{"a":{"b":2,"y":1},"z":1}`, string(b))
}

func TestHashBytes_IsDeterministic(t *testing.T) {
	payload := []byte("hello artifact")
	h1 := canonical.HashBytes(payload)
	h2 := canonical.HashBytes(payload)
	require.Equal(t, h1, h2)
	require.Regexp(t, `^sha256:[0-9a-f]{64}$`, h1)
}
