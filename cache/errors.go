package cache

import (
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jmgilman/go/errors"
)

// ErrNotImplemented is returned by Base for every operation a transport does
// not override.
var ErrNotImplemented = errors.New(errors.CodeNotImplemented, "backend operation not implemented")

// ErrUnkeyable is returned when an argument is nested deeper than MaxDepth.
// The engine runs the function without the cache for such calls.
var ErrUnkeyable = errors.New(errors.CodeInvalidInput, "argument nesting exceeds MaxDepth")

// BackendError marks a transport failure for op on key. The memoization engine
// treats every error carrying this code as "backend unusable for this request".
func BackendError(op, key string, cause error) error {
	if cause == nil {
		cause = fmt.Errorf("%s failed", op)
	}
	return errors.WrapWithContext(cause, errors.CodeUnavailable,
		"unable to make request to backend: "+op,
		map[string]interface{}{"op": op, "key": key},
	)
}

// ConfigError reports a programming or configuration mistake. It is never
// recovered by the engine.
func ConfigError(field, message string) error {
	return errors.WithContext(
		errors.Newf(errors.CodeInvalidConfig, "config error in field %s: %s", field, message),
		"field", field,
	)
}

// SerializationError wraps a codec failure on a value being cached.
func SerializationError(codec string, cause error) error {
	return errors.WrapWithContext(cause, errors.CodeInvalidInput,
		"unable to encode value with "+codec+" codec",
		map[string]interface{}{"codec": codec},
	)
}

// IsBackendError reports whether err signals a transport failure.
func IsBackendError(err error) bool {
	return err != nil && errors.GetCode(err) == errors.CodeUnavailable
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return err != nil && errors.GetCode(err) == errors.CodeInvalidConfig
}

// IsSerializationError reports whether err is a codec failure.
func IsSerializationError(err error) bool {
	return err != nil && errors.GetCode(err) == errors.CodeInvalidInput
}

// IsUnkeyable reports whether err comes from an argument that cannot be keyed.
func IsUnkeyable(err error) bool {
	return errors.Is(err, ErrUnkeyable)
}

// IsNotImplemented reports whether err came from an operation a backend does
// not support.
func IsNotImplemented(err error) bool {
	return err != nil && errors.GetCode(err) == errors.CodeNotImplemented
}

// ValidationError converts a validation result into a configuration error
// naming the first failing field in lexical order.
func ValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		names := make([]string, 0, len(fieldErrs))
		for name, fieldErr := range fieldErrs {
			if fieldErr != nil {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		if len(names) > 0 {
			return ConfigError(names[0], fieldErrs[names[0]].Error())
		}
		return nil
	}
	return errors.Wrap(err, errors.CodeInvalidConfig, "invalid configuration")
}
