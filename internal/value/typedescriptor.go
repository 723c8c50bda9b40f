package value

import (
	"fmt"
	"reflect"
)

// TypeDescriptor describes the type of a value flowing through an
// evaluation, including the element type for arrays, slices and maps.
// Descriptors are cheap immutable value objects built on demand; they are
// never pooled.
type TypeDescriptor struct {
	typ  reflect.Type
	elem *TypeDescriptor
	key  *TypeDescriptor
}

// nullDescriptor describes an untyped nil. Its raw type is absent.
var nullDescriptor = &TypeDescriptor{}

// NullDescriptor returns the descriptor shared by all untyped nil values.
func NullDescriptor() *TypeDescriptor {
	return nullDescriptor
}

// ValueOf builds a descriptor for the given runtime type. Element types for
// slices, arrays and maps are resolved from the type itself; unlike the
// erased-generics systems this model descends from, a Go runtime type always
// knows its element type.
func ValueOf(t reflect.Type) *TypeDescriptor {
	if t == nil {
		return nullDescriptor
	}
	d := &TypeDescriptor{typ: t}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		d.elem = ValueOf(t.Elem())
	case reflect.Map:
		d.key = ValueOf(t.Key())
		d.elem = ValueOf(t.Elem())
	}
	return d
}

// ForValue builds a descriptor from a value's runtime type. A nil value
// yields the null descriptor.
func ForValue(v any) *TypeDescriptor {
	if v == nil {
		return nullDescriptor
	}
	return ValueOf(reflect.TypeOf(v))
}

// FromStructField builds a descriptor from a declared struct field,
// preserving the field's declared element type even when the runtime value
// would be nil.
func FromStructField(f reflect.StructField) *TypeDescriptor {
	return ValueOf(f.Type)
}

// Type returns the raw reflect type, or nil for the null descriptor.
func (d *TypeDescriptor) Type() reflect.Type {
	return d.typ
}

// IsArray reports whether the described type is a Go array or slice. When
// true, ElementType is non-nil.
func (d *TypeDescriptor) IsArray() bool {
	if d.typ == nil {
		return false
	}
	k := d.typ.Kind()
	return k == reflect.Slice || k == reflect.Array
}

// IsMap reports whether the described type is a map.
func (d *TypeDescriptor) IsMap() bool {
	return d.typ != nil && d.typ.Kind() == reflect.Map
}

// ElementType returns the element descriptor for arrays, slices and maps
// (the map value type), or nil.
func (d *TypeDescriptor) ElementType() *TypeDescriptor {
	return d.elem
}

// KeyType returns the key descriptor for maps, or nil.
func (d *TypeDescriptor) KeyType() *TypeDescriptor {
	return d.key
}

// Equal reports descriptor equality: same raw type and equal element
// descriptors, or both element descriptors absent.
func (d *TypeDescriptor) Equal(other *TypeDescriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.typ != other.typ {
		return false
	}
	if (d.elem == nil) != (other.elem == nil) {
		return false
	}
	if d.elem != nil && !d.elem.Equal(other.elem) {
		return false
	}
	return true
}

// AsString renders a readable type name: "int[]" for []int,
// "map<string, int>" for map[string]int. The element name of a nested array
// drops its own parameterization ("map[]", not "map<string, int>[]"); this
// lossy rendering is deliberate and pinned by tests.
func (d *TypeDescriptor) AsString() string {
	if d == nil || d.typ == nil {
		return "null"
	}
	switch {
	case d.IsArray():
		return d.elem.baseName() + "[]"
	case d.IsMap():
		return fmt.Sprintf("map<%s, %s>", d.key.AsString(), d.elem.AsString())
	default:
		return d.typ.String()
	}
}

// baseName is the rendered name with the type's own parameterization
// stripped, used for array element rendering.
func (d *TypeDescriptor) baseName() string {
	if d == nil || d.typ == nil {
		return "null"
	}
	switch {
	case d.IsArray():
		return d.elem.baseName() + "[]"
	case d.IsMap():
		return "map"
	default:
		return d.typ.String()
	}
}

func (d *TypeDescriptor) String() string {
	return d.AsString()
}
