// Package paramspec implements the late-bound parameter value resolver:
// every Params field is either a literal, a value pulled from Resources,
// or computed from a predecessor's discovered state under a given
// ValueResolutionMode.
//
// Go has no associated-type derive mechanism, so the Partial, FieldWise
// and Spec companions of a Params type are implemented here once,
// generically, using reflection over the user's Params struct instead of
// per-type generated code.
package paramspec

import (
	"github.com/hashmap-kz/peaceflow/internal/resources"
)

// Mode controls which per-item state slot a field mapping reads
// predecessors' values from. It is exactly resources.Mode: the slot a
// resolver reads from in mode M is the same slot State values are stored
// under in mode M.
type Mode = resources.Mode

const (
	ModeCurrent  = resources.ModeCurrent
	ModeGoal     = resources.ModeGoal
	ModeClean    = resources.ModeClean
	ModeApplyDry = resources.ModeApplyDry
	ModeExample  = resources.ModeExample
)

type valueSpecKind int

const (
	kindValue valueSpecKind = iota
	kindStored
	kindInMemory
	kindMappingFn
)

// ValueSpec is the per-field specification: a literal, a request to pull
// the field from the item's most recently stored/known Params value, or a
// function of the item's declared Data slice.
type ValueSpec[T any] struct {
	kind    valueSpecKind
	literal T
	mapping func(data any) (T, bool)
}

// Value specifies a literal value for the field.
func Value[T any](v T) ValueSpec[T] {
	return ValueSpec[T]{kind: kindValue, literal: v}
}

// Stored specifies that the field is read from the item's most recently
// known Params value (an adopted stored spec or the last successful
// resolution); absent such a value, the field does not resolve.
func Stored[T any]() ValueSpec[T] {
	return ValueSpec[T]{kind: kindStored}
}

// InMemory resolves exactly as Stored does: from the item's most recently
// known Params value, whether or not it was persisted.
func InMemory[T any]() ValueSpec[T] {
	return ValueSpec[T]{kind: kindInMemory}
}

// FromMappingFn specifies that the field is computed from the item's
// declared Data, in the ValueResolutionMode the resolver is invoked with.
// A false second return means the field did not resolve.
func FromMappingFn[T any](f func(data any) (T, bool)) ValueSpec[T] {
	return ValueSpec[T]{kind: kindMappingFn, mapping: f}
}

// resolve evaluates a single field's spec.
func (s ValueSpec[T]) resolve(stored any, data any) (T, bool) {
	switch s.kind {
	case kindValue:
		return s.literal, true
	case kindStored, kindInMemory:
		if stored == nil {
			var zero T
			return zero, false
		}
		v, ok := stored.(T)
		return v, ok
	case kindMappingFn:
		if s.mapping == nil {
			var zero T
			return zero, false
		}
		return s.mapping(data)
	default:
		var zero T
		return zero, false
	}
}
