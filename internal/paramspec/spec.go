package paramspec

import (
	"fmt"
	"reflect"

	"github.com/hashmap-kz/peaceflow/internal/itemid"
)

// FieldSpec is the type-erased form of ValueSpec[T], used inside a
// FieldWise map where each field may have its own concrete T.
type FieldSpec interface {
	resolveAny(stored any, data any) (any, bool)
	kindName() string
}

type fieldSpecWrapper[T any] struct{ v ValueSpec[T] }

func (w fieldSpecWrapper[T]) resolveAny(stored any, data any) (any, bool) {
	v, ok := w.v.resolve(stored, data)
	return v, ok
}

func (w fieldSpecWrapper[T]) kindName() string {
	switch w.v.kind {
	case kindValue:
		return "value"
	case kindStored:
		return "stored"
	case kindInMemory:
		return "in_memory"
	case kindMappingFn:
		return "mapping_fn"
	default:
		return "unknown"
	}
}

// Field wraps a typed ValueSpec so it can be placed into a FieldWise map.
func Field[T any](v ValueSpec[T]) FieldSpec {
	return fieldSpecWrapper[T]{v: v}
}

// FieldWise mirrors a Params struct with every field given its own
// ValueSpec, keyed by the Go struct field name.
type FieldWise map[string]FieldSpec

type specKind int

const (
	specKindValue specKind = iota
	specKindFieldWise
	specKindMappingFn
	specKindStored
	specKindInMemory
)

// Spec is the per-item parameter specification: a literal Params value, a
// per-field FieldWise map, a whole-struct mapping function, or a request
// to reuse the stored/in-memory value.
type Spec[P any] struct {
	kind      specKind
	value     P
	fieldWise FieldWise
	mappingFn func(data any) (P, bool)
}

// SpecValue builds a Spec that resolves to a literal Params value.
func SpecValue[P any](p P) Spec[P] { return Spec[P]{kind: specKindValue, value: p} }

// SpecFieldWise builds a Spec that resolves each field independently.
func SpecFieldWise[P any](fw FieldWise) Spec[P] { return Spec[P]{kind: specKindFieldWise, fieldWise: fw} }

// SpecMappingFn builds a Spec that resolves the whole Params struct from Data.
func SpecMappingFn[P any](f func(data any) (P, bool)) Spec[P] {
	return Spec[P]{kind: specKindMappingFn, mappingFn: f}
}

// SpecStored builds a Spec that reuses the previously stored ParamsSpec.
func SpecStored[P any]() Spec[P] { return Spec[P]{kind: specKindStored} }

// SpecInMemory builds a Spec that reuses the in-memory ParamsSpec.
func SpecInMemory[P any]() Spec[P] { return Spec[P]{kind: specKindInMemory} }

// KindName reports the spec's kind, used for the persisted params_specs.yaml
// registry and for the provided-vs-stored merge/mismatch report.
func (s Spec[P]) KindName() string {
	switch s.kind {
	case specKindValue:
		return "value"
	case specKindFieldWise:
		return "field_wise"
	case specKindMappingFn:
		return "mapping_fn"
	case specKindStored:
		return "stored"
	case specKindInMemory:
		return "in_memory"
	default:
		return "unknown"
	}
}

// Literal returns the Params value of a Value-kind spec, so the CmdContext
// builder can persist it into params_specs.yaml and a later build can
// reconstruct the spec without the caller re-supplying it.
func (s Spec[P]) Literal() (P, bool) {
	if s.kind != specKindValue {
		var zero P
		return zero, false
	}
	return s.value, true
}

// ResolutionCtx is the sole structured error context on a resolution
// failure: the mode, the owning item id, and the expected type name.
type ResolutionCtx struct {
	Mode         Mode
	ItemID       itemid.ID
	ExpectedType string
}

func (c ResolutionCtx) Error() string {
	return fmt.Sprintf("paramspec: item %q: could not resolve %s in mode %s",
		c.ItemID, c.ExpectedType, c.Mode)
}

// Resolve runs the field resolution algorithm against stored (the most
// recently known value of the whole Params type, for Stored/InMemory
// whole-spec kinds)
// and data (the item's declared Data, for MappingFn). It returns a
// complete Params on success; on failure it returns the Partial of the
// fields that did resolve and a ResolutionCtx error.
func Resolve[P any](s Spec[P], ctx ResolutionCtx, stored *P, data any) (P, Partial[P], error) {
	var zero P
	switch s.kind {
	case specKindValue:
		return s.value, FromParams(s.value), nil

	case specKindStored, specKindInMemory:
		if stored == nil {
			return zero, NewPartial[P](), ctx
		}
		return *stored, FromParams(*stored), nil

	case specKindMappingFn:
		if s.mappingFn == nil {
			return zero, NewPartial[P](), ctx
		}
		p, ok := s.mappingFn(data)
		if !ok {
			return zero, NewPartial[P](), ctx
		}
		return p, FromParams(p), nil

	case specKindFieldWise:
		partial := NewPartial[P]()
		var storedFields map[string]any
		if stored != nil {
			storedFields = FromParams(*stored).fields
		}
		t := reflect.TypeOf(zero)
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fs, ok := s.fieldWise[f.Name]
			if !ok {
				continue
			}
			var fieldStored any
			if storedFields != nil {
				fieldStored = storedFields[f.Name]
			}
			v, ok := fs.resolveAny(fieldStored, data)
			if ok {
				partial.Set(f.Name, v)
			}
		}
		p, ok := partial.ToParams()
		if !ok {
			return zero, partial, ctx
		}
		return p, partial, nil

	default:
		return zero, NewPartial[P](), ctx
	}
}
