// Package assert panics on wiring mistakes that no caller can recover from.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics when value is nil or a typed nil, name identifies the value
// in the panic message.
func NotNil(value any, name string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", name))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			panic(fmt.Sprintf("expected %s to be not nil", name))
		}
	}
}
