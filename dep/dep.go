// Package dep checks constructor wiring.
package dep

import (
	"fmt"
	"reflect"
	"runtime"
)

// Required returns t, or panics naming the constructor that was handed a
// nil dependency.  Typed nil pointers get through; only a nil interface is
// caught.
func Required[T any](t T) T {
	if reflect.ValueOf(t).IsValid() {
		return t
	}
	where := "unknown caller"
	if pc, file, line, ok := runtime.Caller(1); ok {
		where = fmt.Sprintf("%s:%d", file, line)
		if fn := runtime.FuncForPC(pc); fn != nil {
			where = fmt.Sprintf("%s (%s)", fn.Name(), where)
		}
	}
	panic(fmt.Sprintf("missing required %T dependency in %s", t, where))
}
