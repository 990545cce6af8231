package util

import "reflect"

func IsZero(i interface{}) bool {
	return IsZeroVal(reflect.ValueOf(i))
}

func IsZeroVal(v reflect.Value) bool {
	return v.Interface() == reflect.Zero(v.Type()).Interface()
}

// IsNil returns true for nil interface and for nil values of nillable kinds.
// Values of other kinds, like strings or numbers, are never nil.
func IsNil(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}
