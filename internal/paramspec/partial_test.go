package paramspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

type vecParams struct {
	Src string
	Len int
}

func TestPartialRoundTrip(t *testing.T) {
	p := vecParams{Src: "/tmp/a", Len: 8}

	partial := FromParams(p)
	assert.True(t, partial.IsComplete())

	got, ok := partial.ToParams()
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestPartialIncomplete(t *testing.T) {
	partial := NewPartial[vecParams]()
	partial.Set("Src", "/tmp/a")

	assert.False(t, partial.IsComplete())
	_, ok := partial.ToParams()
	assert.False(t, ok)

	partial.Set("Len", 4)
	assert.True(t, partial.IsComplete())
	got, ok := partial.ToParams()
	require.True(t, ok)
	assert.Equal(t, vecParams{Src: "/tmp/a", Len: 4}, got)
}

func TestResolveSpecValue(t *testing.T) {
	spec := SpecValue(vecParams{Src: "/tmp/b", Len: 2})
	ctx := ResolutionCtx{Mode: ModeCurrent, ItemID: "vec_copy", ExpectedType: "vecParams"}

	got, partial, err := Resolve(spec, ctx, (*vecParams)(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, vecParams{Src: "/tmp/b", Len: 2}, got)
	assert.True(t, partial.IsComplete())
}

func TestResolveFieldWiseMappingFn(t *testing.T) {
	spec := SpecFieldWise[vecParams](FieldWise{
		"Src": Field(Value("/tmp/c")),
		"Len": Field(FromMappingFn(func(data any) (int, bool) {
			n, ok := data.(int)
			return n, ok
		})),
	})
	ctx := ResolutionCtx{Mode: ModeCurrent, ItemID: "vec_copy", ExpectedType: "vecParams"}

	got, _, err := Resolve(spec, ctx, (*vecParams)(nil), 16)
	require.NoError(t, err)
	assert.Equal(t, vecParams{Src: "/tmp/c", Len: 16}, got)

	_, _, err = Resolve(spec, ctx, (*vecParams)(nil), "not-an-int")
	assert.Error(t, err)
}

func TestResolveStoredMissing(t *testing.T) {
	spec := SpecStored[vecParams]()
	ctx := ResolutionCtx{Mode: ModeCurrent, ItemID: "vec_copy", ExpectedType: "vecParams"}

	_, _, err := Resolve(spec, ctx, (*vecParams)(nil), nil)
	assert.Error(t, err)

	stored := vecParams{Src: "/tmp/d", Len: 1}
	got, _, err := Resolve(spec, ctx, &stored, nil)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestMergeSpecKinds(t *testing.T) {
	ids := []itemid.ID{"vec_copy", "mock", "renamed"}
	provided := map[itemid.ID]string{"vec_copy": "value"}
	stored := map[itemid.ID]string{"vec_copy": "field_wise", "mock": "mapping_fn"}

	merged, report := MergeSpecKinds(ids, provided, stored)

	assert.Equal(t, "value", merged["vec_copy"]) // provided wins
	assert.Equal(t, []itemid.ID{"mock"}, report.NotUsable)
	assert.Equal(t, []itemid.ID{"renamed"}, report.ItemIDsWithNoParamsSpecs)
	assert.False(t, report.Empty())
}

func TestMergeSpecKindsStoredDefersToRegistry(t *testing.T) {
	ids := []itemid.ID{"vec_copy", "mock"}
	provided := map[itemid.ID]string{"vec_copy": "stored", "mock": "stored"}
	stored := map[itemid.ID]string{"vec_copy": "value", "mock": "mapping_fn"}

	merged, report := MergeSpecKinds(ids, provided, stored)

	assert.Equal(t, "value", merged["vec_copy"])
	assert.Equal(t, []itemid.ID{"mock"}, report.NotUsable)
	assert.Empty(t, report.ItemIDsWithNoParamsSpecs)
}
