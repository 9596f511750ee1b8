package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

type workspaceRoot string

func TestInsertBorrowRemove(t *testing.T) {
	r := New()

	_, ok := Borrow[workspaceRoot](r)
	assert.False(t, ok)

	Insert(r, workspaceRoot("/tmp/ws"))
	v, ok := Borrow[workspaceRoot](r)
	assert.True(t, ok)
	assert.Equal(t, workspaceRoot("/tmp/ws"), v)

	removed, ok := TryRemove[workspaceRoot](r)
	assert.True(t, ok)
	assert.Equal(t, v, removed)

	_, ok = Borrow[workspaceRoot](r)
	assert.False(t, ok)
}

func TestSlotsDisambiguateByModeAndItem(t *testing.T) {
	r := New()
	const a, b itemid.ID = "vec_copy", "mock"

	SetupSlot[int](r, ModeCurrent, a)
	SetupSlot[int](r, ModeGoal, a)
	SetupSlot[int](r, ModeCurrent, b)

	_, ok := GetSlot[int](r, ModeCurrent, a)
	assert.False(t, ok, "setup does not populate")

	SetSlot(r, ModeCurrent, a, 1)
	SetSlot(r, ModeGoal, a, 2)
	SetSlot(r, ModeCurrent, b, 99)

	v, ok := GetSlot[int](r, ModeCurrent, a)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = GetSlot[int](r, ModeGoal, a)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = GetSlot[int](r, ModeCurrent, b)
	assert.True(t, ok)
	assert.Equal(t, 99, v)

	ClearSlot[int](r, ModeCurrent, a)
	_, ok = GetSlot[int](r, ModeCurrent, a)
	assert.False(t, ok)

	// Goal slot for `a` and Current slot for `b` are untouched.
	v, ok = GetSlot[int](r, ModeGoal, a)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
