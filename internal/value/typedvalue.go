package value

import (
	"fmt"
	"reflect"
)

// TypedValue is an immutable (value, type descriptor) pair. A fresh
// TypedValue is constructed at each evaluation step and never mutated.
type TypedValue struct {
	value      any
	descriptor *TypeDescriptor
}

// Null is the canonical typed value for an untyped nil.
var Null = TypedValue{descriptor: nullDescriptor}

// New builds a typed value, deriving the descriptor from the value's
// runtime type. A nil value yields Null.
func New(v any) TypedValue {
	if v == nil {
		return Null
	}
	return TypedValue{value: v, descriptor: ForValue(v)}
}

// NewWithDescriptor builds a typed value with an explicit descriptor,
// typically one built from a declared field or parameter.
func NewWithDescriptor(v any, d *TypeDescriptor) TypedValue {
	if d == nil {
		d = ForValue(v)
	}
	return TypedValue{value: v, descriptor: d}
}

// Value returns the wrapped value, possibly nil.
func (t TypedValue) Value() any {
	return t.value
}

// Descriptor returns the type descriptor, never nil.
func (t TypedValue) Descriptor() *TypeDescriptor {
	if t.descriptor == nil {
		return nullDescriptor
	}
	return t.descriptor
}

// IsNull reports whether the wrapped value is nil, including a typed nil
// pointer or nil container boxed in the interface.
func (t TypedValue) IsNull() bool {
	if t.value == nil {
		return true
	}
	rv := reflect.ValueOf(t.value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func (t TypedValue) String() string {
	if t.value == nil {
		return "null"
	}
	return fmt.Sprintf("%v @ %s", t.value, t.Descriptor().AsString())
}
