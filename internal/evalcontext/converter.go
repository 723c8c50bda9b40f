package evalcontext

import (
	"fmt"
	"reflect"
	"strconv"
)

// StandardTypeConverter is the default best-effort coercion: numeric
// widening and narrowing, string parsing into numerics, and Stringer
// rendering into string. Anything assignable never reaches the converter;
// the resolvers classify assignable arguments as close matches.
type StandardTypeConverter struct{}

// CanConvert implements TypeConverter.
func (c *StandardTypeConverter) CanConvert(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}
	if isNumeric(from.Kind()) && isNumeric(to.Kind()) {
		return true
	}
	if from.Kind() == reflect.String && isNumeric(to.Kind()) {
		return true
	}
	if to.Kind() == reflect.String && from.Implements(stringerType) {
		return true
	}
	return false
}

// Convert implements TypeConverter.
func (c *StandardTypeConverter) Convert(v any, to reflect.Type) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot convert nil to %s", to)
	}
	from := reflect.TypeOf(v)
	rv := reflect.ValueOf(v)

	switch {
	case isNumeric(from.Kind()) && isNumeric(to.Kind()):
		return rv.Convert(to).Interface(), nil
	case from.Kind() == reflect.String && isNumeric(to.Kind()):
		s := rv.String()
		if isFloat(to.Kind()) {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to %s: %w", s, to, err)
			}
			return reflect.ValueOf(f).Convert(to).Interface(), nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to %s: %w", s, to, err)
		}
		return reflect.ValueOf(i).Convert(to).Interface(), nil
	case to.Kind() == reflect.String && from.Implements(stringerType):
		return v.(fmt.Stringer).String(), nil
	}
	return nil, fmt.Errorf("cannot convert %s to %s", from, to)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
