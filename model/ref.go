package model

// Ref points at a related entity either through a loaded object or through
// its bare numeric ID. A bare ID is accepted without loading the row; the
// row must exist in storage by commit time or the transaction fails with a
// foreign-key violation.
//
// The zero Ref means "no reference" and is valid wherever the relation is
// optional (e.g. the author of an anonymous posting).
type Ref[T any] struct {
	obj *T
	id  *int64
}

// ByID creates a reference from a bare numeric ID. An ID of 0 is a valid
// reference, distinct from the zero Ref.
func ByID[T any](id int64) Ref[T] {
	return Ref[T]{id: &id}
}

// ByObj creates a reference from a loaded entity. A nil object yields the
// zero Ref.
func ByObj[T any](obj *T) Ref[T] {
	if obj == nil {
		return Ref[T]{}
	}
	return Ref[T]{obj: obj}
}

// None is the absent reference.
func None[T any]() Ref[T] {
	return Ref[T]{}
}

// IsZero reports whether the reference is absent.
func (r Ref[T]) IsZero() bool {
	return r.obj == nil && r.id == nil
}

// Obj returns the referenced object, or nil if the reference is absent or
// holds only an ID.
func (r Ref[T]) Obj() *T {
	return r.obj
}

// RawID returns the bare ID and whether one was set. It does not consult
// the referenced object; use the entity-specific key helpers for that.
func (r Ref[T]) RawID() (int64, bool) {
	if r.id == nil {
		return 0, false
	}
	return *r.id, true
}
