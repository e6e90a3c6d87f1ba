// Package errors normalizes Go error values into stable class names for
// metric and log tagging.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify returns a normalized type name for the innermost error, suitable
// as a metric tag value ("pgconn_pgerror", "net_operror", "errors_errorstring").
func Classify(err error) string {
	if err == nil {
		return ""
	}
	return typeName(reflect.TypeOf(root(err)))
}

// root follows the Unwrap chain to the innermost error. Wrapper layers added
// by fmt.Errorf carry no type signal of their own.
func root(err error) error {
	for inner := goerrors.Unwrap(err); inner != nil; inner = goerrors.Unwrap(err) {
		err = inner
	}
	return err
}

func typeName(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.NewReplacer("*", "", ".", "_").Replace(t.String())
	name = strings.ToLower(name)
	if name == "" {
		return "unknown"
	}
	return name
}
