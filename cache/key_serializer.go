package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// KeySeparator separates a namespace from the hashed part of a key.
const KeySeparator = ":"

// MaxDepth bounds how deep the argument walk descends into nested values.
// Each pointer, interface, field, element or map entry is one level. Deeper
// arguments cannot be keyed, see ErrUnkeyable.
const MaxDepth = 10000

// SelfDescriber is implemented by values that encode their own cache
// identity. It takes precedence over fmt.Stringer.
type SelfDescriber interface {
	DescribeSelf() string
}

// SignatureGenerator renders call arguments into a stable signature string.
type SignatureGenerator func(args []any, kwargs map[string]any) string

// KeySerializer turns a callable name and an argument signature into the key
// used against the backend.
type KeySerializer interface {
	SerializeKey(name, signature string) string
}

// defaultKeySerializer hashes name+signature with xxhash. The digest is stable
// across processes and platforms, so keys survive redeploys.
type defaultKeySerializer struct {
	namespace string
}

// NewDefaultKeySerializer creates a serializer producing bare hash keys.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// NewNamespacedKeySerializer creates a serializer producing "namespace:hash"
// keys. An empty namespace behaves like NewDefaultKeySerializer.
func NewNamespacedKeySerializer(namespace string) KeySerializer {
	return &defaultKeySerializer{namespace: namespace}
}

func (s *defaultKeySerializer) SerializeKey(name, signature string) string {
	key := Key(name, signature)
	if s.namespace == "" {
		return key
	}
	return s.namespace + KeySeparator + key
}

// Key returns the decimal xxhash digest of name+signature.
func Key(name, signature string) string {
	return strconv.FormatUint(xxhash.Sum64String(name+signature), 10)
}

// DefaultSignature joins positional arguments, then keyword arguments sorted
// by name as name=value, skipping empty halves:
//
//	arg1,...,argN,kw1=v1,...,kwN=vN
//
// An argument that cannot be keyed renders as a token unique to this call,
// so it never matches a stored entry. Use Signature to detect that case.
func DefaultSignature(args []any, kwargs map[string]any) string {
	signature, _ := buildSignature(args, kwargs, func(v any) (string, error) {
		return ArgumentString(v), nil
	})
	return signature
}

// Signature is DefaultSignature reporting ErrUnkeyable instead of rendering
// a unique token.
func Signature(args []any, kwargs map[string]any) (string, error) {
	return buildSignature(args, kwargs, FormatArgument)
}

func buildSignature(args []any, kwargs map[string]any, format func(any) (string, error)) (string, error) {
	positional := make([]string, len(args))
	for i, arg := range args {
		text, err := format(arg)
		if err != nil {
			return "", err
		}
		positional[i] = text
	}

	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)

	keyword := make([]string, len(names))
	for i, name := range names {
		text, err := format(kwargs[name])
		if err != nil {
			return "", err
		}
		keyword[i] = name + "=" + text
	}

	parts := make([]string, 0, 2)
	for _, part := range []string{strings.Join(positional, ","), strings.Join(keyword, ",")} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ","), nil
}

// ArgumentString renders a single argument value:
//
//   - primitives use their direct text form
//   - SelfDescriber and fmt.Stringer values use their own description
//   - structs render as TypeName_[(Field, value), ...] with fields sorted by
//     name and every field, exported or not, rendered recursively
//   - slices, arrays and maps render their elements recursively, maps sorted
//     by rendered key
//   - funcs, chans and unsafe pointers carry no introspectable state and fall
//     back to type@address, which is only stable within one process
//
// A struct whose method set includes String, promoted from an embedded
// field or not, is rendered by that method alone, so sibling fields only
// contribute if String reads them. Implement SelfDescriber to override.
//
// Values already on the current path render as <cycle:Type>. A value nested
// deeper than MaxDepth renders as a token unique to this call.
func ArgumentString(v any) string {
	text, err := FormatArgument(v)
	if err != nil {
		return "<unkeyable:" + uuid.NewString() + ">"
	}
	return text
}

// FormatArgument is ArgumentString returning ErrUnkeyable when v is nested
// deeper than MaxDepth.
func FormatArgument(v any) (string, error) {
	if v == nil {
		return "nil", nil
	}
	s := &argumentSerializer{visiting: make(map[visit]struct{})}
	text := s.serialize(reflect.ValueOf(v), 0)
	if s.err != nil {
		return "", s.err
	}
	return text, nil
}

type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type argumentSerializer struct {
	visiting map[visit]struct{}
	err      error
}

var (
	describerType = reflect.TypeOf((*SelfDescriber)(nil)).Elem()
	stringerType  = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

func (s *argumentSerializer) serialize(rv reflect.Value, depth int) string {
	if !rv.IsValid() {
		return "nil"
	}
	if s.err != nil {
		return ""
	}
	if depth > MaxDepth {
		s.err = ErrUnkeyable
		return ""
	}

	if text, ok := describe(rv); ok {
		return text
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "nil"
		}
		return s.enter(rv, func() string {
			return s.serialize(rv.Elem(), depth+1)
		})

	case reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serialize(rv.Elem(), depth+1)

	case reflect.Struct:
		return s.serializeStruct(rv, depth)

	case reflect.Slice:
		if rv.IsNil() {
			return "nil"
		}
		return s.enter(rv, func() string {
			return s.serializeSequence(rv, depth)
		})

	case reflect.Array:
		return s.serializeSequence(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			return "nil"
		}
		return s.enter(rv, func() string {
			return s.serializeMap(rv, depth)
		})

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return "nil"
		}
		return fmt.Sprintf("%s@%#x", rv.Type().String(), rv.Pointer())
	}

	return primitive(rv)
}

// describe returns the value's own description when it implements
// SelfDescriber or fmt.Stringer. Nil receivers are never invoked.
func describe(rv reflect.Value) (string, bool) {
	if !rv.CanInterface() {
		return "", false
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return "", false
		}
	}

	rt := rv.Type()
	switch {
	case rt.Implements(describerType):
		return rv.Interface().(SelfDescriber).DescribeSelf(), true
	case rt.Implements(stringerType):
		return rv.Interface().(fmt.Stringer).String(), true
	}
	return "", false
}

// enter guards reference values against cycles for the duration of fn.
func (s *argumentSerializer) enter(rv reflect.Value, fn func() string) string {
	v := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		v.len = rv.Len()
	}
	if _, ok := s.visiting[v]; ok {
		return "<cycle:" + rv.Type().String() + ">"
	}
	s.visiting[v] = struct{}{}
	defer delete(s.visiting, v)
	return fn()
}

type fieldState struct {
	name  string
	value string
}

func (s *argumentSerializer) serializeStruct(rv reflect.Value, depth int) string {
	// Copy into addressable memory so unexported fields can be exposed.
	if !rv.CanAddr() && rv.CanInterface() {
		addressable := reflect.New(rv.Type()).Elem()
		addressable.Set(rv)
		rv = addressable
	}

	rt := rv.Type()
	fields := make([]fieldState, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.Name == "_" {
			continue
		}
		fields = append(fields, fieldState{
			name:  field.Name,
			value: s.serialize(exposed(rv.Field(i)), depth+1),
		})
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].name < fields[j].name
	})

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = "(" + f.name + ", " + f.value + ")"
	}
	return typeName(rt) + "_[" + strings.Join(parts, ", ") + "]"
}

func (s *argumentSerializer) serializeSequence(rv reflect.Value, depth int) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = s.serialize(exposed(rv.Index(i)), depth+1)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s *argumentSerializer) serializeMap(rv reflect.Value, depth int) string {
	type pair struct {
		key   string
		value string
	}

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   s.serialize(iter.Key(), depth+1),
			value: s.serialize(iter.Value(), depth+1),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key == pairs[j].key {
			return pairs[i].value < pairs[j].value
		}
		return pairs[i].key < pairs[j].key
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + ": " + p.value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// exposed makes an addressable unexported field readable through Interface.
func exposed(rv reflect.Value) reflect.Value {
	if rv.CanInterface() || !rv.CanAddr() {
		return rv
	}
	return reflect.NewAt(rv.Type(), unsafe.Pointer(rv.UnsafeAddr())).Elem()
}

func primitive(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.Complex64:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 64)
	case reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 128)
	case reflect.String:
		return rv.String()
	}
	return rv.Type().String()
}

func typeName(rt reflect.Type) string {
	if name := rt.Name(); name != "" {
		return name
	}
	return rt.String()
}
