package evalcontext

import (
	"fmt"
	"reflect"

	"github.com/stoewer/go-strcase"

	"github.com/spellang/spel/internal/value"
)

// ReflectivePropertyAccessor resolves properties against any target: map
// keys, exported struct fields (the expression name "name" reaches the Go
// field "Name") and zero-argument getter methods ("name" reaches Name() or
// GetName()). Writes go to map entries and settable struct fields.
type ReflectivePropertyAccessor struct{}

// SpecificTargetTypes returns nil: this accessor is generic.
func (a *ReflectivePropertyAccessor) SpecificTargetTypes() []reflect.Type {
	return nil
}

// CanRead implements PropertyAccessor.
func (a *ReflectivePropertyAccessor) CanRead(ctx EvaluationContext, target any, name string) bool {
	if target == nil {
		return false
	}
	_, ok := a.lookup(target, name)
	return ok
}

// Read implements PropertyAccessor.
func (a *ReflectivePropertyAccessor) Read(ctx EvaluationContext, target any, name string) (value.TypedValue, error) {
	if target == nil {
		return value.Null, &AccessError{Message: "cannot read property on nil target"}
	}
	r, ok := a.lookup(target, name)
	if !ok {
		return value.Null, &AccessError{Message: fmt.Sprintf("property %q not found on %T", name, target)}
	}
	return r.read(target)
}

// CanWrite implements PropertyAccessor.
func (a *ReflectivePropertyAccessor) CanWrite(ctx EvaluationContext, target any, name string) bool {
	if target == nil {
		return false
	}
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		return true
	}
	elem := v
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return false
	}
	f := elem.FieldByName(goFieldName(elem.Type(), name))
	return f.IsValid() && f.CanSet()
}

// Write implements PropertyAccessor.
func (a *ReflectivePropertyAccessor) Write(ctx EvaluationContext, target any, name string, newValue any) error {
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		nv := reflect.ValueOf(newValue)
		elem := v.Type().Elem()
		if newValue == nil {
			v.SetMapIndex(reflect.ValueOf(name).Convert(v.Type().Key()), reflect.Zero(elem))
			return nil
		}
		if !nv.Type().AssignableTo(elem) {
			if converted, err := ctx.TypeConverter().Convert(newValue, elem); err == nil {
				nv = reflect.ValueOf(converted)
			} else {
				return &AccessError{Message: fmt.Sprintf("cannot write %T into map of %s", newValue, elem)}
			}
		}
		v.SetMapIndex(reflect.ValueOf(name).Convert(v.Type().Key()), nv)
		return nil
	}

	elem := v
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return &AccessError{Message: fmt.Sprintf("cannot write property %q on %T", name, target)}
	}
	f := elem.FieldByName(goFieldName(elem.Type(), name))
	if !f.IsValid() || !f.CanSet() {
		return &AccessError{Message: fmt.Sprintf("property %q not writable on %T", name, target)}
	}
	if newValue == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}
	nv := reflect.ValueOf(newValue)
	if !nv.Type().AssignableTo(f.Type()) {
		converted, err := ctx.TypeConverter().Convert(newValue, f.Type())
		if err != nil {
			return &AccessError{Message: fmt.Sprintf("cannot write %T into field %s", newValue, f.Type())}
		}
		nv = reflect.ValueOf(converted)
	}
	f.Set(nv)
	return nil
}

// resolvedProperty is a readable handle produced by lookup.
type resolvedProperty struct {
	mapKey reflect.Value
	field  *reflect.StructField
	getter *reflect.Method
}

func (r resolvedProperty) read(target any) (value.TypedValue, error) {
	v := reflect.ValueOf(target)
	switch {
	case r.mapKey.IsValid():
		entry := v.MapIndex(r.mapKey)
		if !entry.IsValid() {
			return value.Null, nil
		}
		return value.NewWithDescriptor(entry.Interface(), value.ValueOf(v.Type().Elem())), nil
	case r.field != nil:
		elem := v
		for elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		fv := elem.FieldByIndex(r.field.Index)
		return value.NewWithDescriptor(fv.Interface(), value.FromStructField(*r.field)), nil
	default:
		out := v.Method(r.getter.Index).Call(nil)
		return resultValue(r.getter.Name, out)
	}
}

func (a *ReflectivePropertyAccessor) lookup(target any, name string) (resolvedProperty, bool) {
	v := reflect.ValueOf(target)
	t := v.Type()

	if v.Kind() == reflect.Map && t.Key().Kind() == reflect.String {
		key := reflect.ValueOf(name).Convert(t.Key())
		if v.MapIndex(key).IsValid() {
			return resolvedProperty{mapKey: key}, true
		}
		return resolvedProperty{}, false
	}

	elem := t
	for elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() == reflect.Struct {
		if f, ok := elem.FieldByName(goFieldName(elem, name)); ok && f.PkgPath == "" {
			return resolvedProperty{field: &f}, true
		}
	}

	camel := strcase.UpperCamelCase(name)
	for _, getterName := range []string{camel, "Get" + camel} {
		if m, ok := t.MethodByName(getterName); ok && m.PkgPath == "" {
			// Zero-arg, at least one result: a getter.
			ft := m.Func.Type()
			if ft.NumIn() == 1 && ft.NumOut() >= 1 {
				return resolvedProperty{getter: &m}, true
			}
		}
	}
	return resolvedProperty{}, false
}

func goFieldName(t reflect.Type, name string) string {
	if _, ok := t.FieldByName(name); ok {
		return name
	}
	return strcase.UpperCamelCase(name)
}
