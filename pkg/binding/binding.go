// Package binding implements the Go-native host binding:
// reflection-driven marshaling between Go values and the
// engine's (T, V) wire pairs. bool/byte/int32/int64/float64/string map
// directly onto b/c/i/I/d/s; slices onto l; maps onto m; structs onto t
// (fields in declaration order); *T onto o; and interface{} onto a.
// No Go type maps onto x or X: a (V, error)-shaped struct is encoded as
// an ordinary tuple like any other struct.
package binding

import (
	"fmt"
	"reflect"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/convert"
	"github.com/ufser-go/ufser/pkg/errval"
)

// Encode converts a Go value into a serialized (T, V) pair.
func Encode(v any) (t, val []byte, err *errval.Error) {
	e := &encoder{}
	t, err = e.encodeType(reflect.TypeOf(v))
	if err != nil {
		return nil, nil, err
	}
	sink := wire.NewAppendSink(&val)
	if err := e.encodeValue(sink, reflect.ValueOf(v)); err != nil {
		return nil, nil, err
	}
	return t, val, nil
}

// EncodeAs encodes v and then converts its (T, V) to targetT under
// policy, for callers that already know the wire type they need.
func EncodeAs(v any, targetT []byte, policy convert.Policy) ([]byte, *errval.Error) {
	t, val, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return convert.Convert(t, val, targetT, policy, nil)
}

type encoder struct{}

func (e *encoder) encodeType(rt reflect.Type) ([]byte, *errval.Error) {
	if rt == nil {
		return nil, nil
	}
	switch rt.Kind() {
	case reflect.Bool:
		return []byte("b"), nil
	case reflect.Uint8:
		return []byte("c"), nil
	case reflect.Int32:
		return []byte("i"), nil
	case reflect.Int64, reflect.Int:
		return []byte("I"), nil
	case reflect.Float64, reflect.Float32:
		return []byte("d"), nil
	case reflect.String:
		return []byte("s"), nil
	case reflect.Interface:
		return []byte("a"), nil
	case reflect.Ptr:
		elemT, err := e.encodeType(rt.Elem())
		if err != nil {
			return nil, err
		}
		return append([]byte("o"), elemT...), nil
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return []byte("s"), nil
		}
		elemT, err := e.encodeType(rt.Elem())
		if err != nil {
			return nil, err
		}
		return append([]byte("l"), elemT...), nil
	case reflect.Map:
		keyT, err := e.encodeType(rt.Key())
		if err != nil {
			return nil, err
		}
		valT, err := e.encodeType(rt.Elem())
		if err != nil {
			return nil, err
		}
		out := append([]byte("m"), keyT...)
		return append(out, valT...), nil
	case reflect.Struct:
		return e.encodeStructType(rt)
	default:
		return nil, errval.APIErr("binding", fmt.Sprintf("unsupported Go kind %s", rt.Kind()))
	}
}

func (e *encoder) encodeStructType(rt reflect.Type) ([]byte, *errval.Error) {
	n := rt.NumField()
	out := []byte(fmt.Sprintf("t%d", n))
	for i := 0; i < n; i++ {
		ft, err := e.encodeType(rt.Field(i).Type)
		if err != nil {
			return nil, err
		}
		out = append(out, ft...)
	}
	return out, nil
}

func (e *encoder) encodeValue(s *wire.Sink, rv reflect.Value) *errval.Error {
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		wire.WriteBool(s, rv.Bool())
	case reflect.Uint8:
		wire.WriteByteVal(s, byte(rv.Uint()))
	case reflect.Int32:
		wire.WriteI32(s, int32(rv.Int()))
	case reflect.Int64, reflect.Int:
		wire.WriteI64(s, rv.Int())
	case reflect.Float64, reflect.Float32:
		wire.WriteF64(s, rv.Float())
	case reflect.String:
		wire.WriteString(s, rv.String())
	case reflect.Interface:
		return e.encodeAny(s, rv)
	case reflect.Ptr:
		return e.encodeOpt(s, rv)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			wire.WriteString(s, string(rv.Bytes()))
			return nil
		}
		return e.encodeList(s, rv)
	case reflect.Map:
		return e.encodeMap(s, rv)
	case reflect.Struct:
		return e.encodeStructValue(s, rv)
	default:
		return errval.APIErr("binding", fmt.Sprintf("unsupported Go kind %s", rv.Kind()))
	}
	return nil
}

func (e *encoder) encodeAny(s *wire.Sink, rv reflect.Value) *errval.Error {
	if rv.IsNil() {
		wire.WriteU32(s, 0)
		wire.WriteU32(s, 0)
		return nil
	}
	inner := rv.Elem()
	innerT, err := e.encodeType(inner.Type())
	if err != nil {
		return err
	}
	var innerV []byte
	innerSink := wire.NewAppendSink(&innerV)
	if err := e.encodeValue(innerSink, inner); err != nil {
		return err
	}
	wire.WriteU32(s, uint32(len(innerT)))
	s.Write(innerT)
	wire.WriteU32(s, uint32(len(innerV)))
	s.Write(innerV)
	return nil
}

func (e *encoder) encodeOpt(s *wire.Sink, rv reflect.Value) *errval.Error {
	if rv.IsNil() {
		wire.WriteBool(s, false)
		return nil
	}
	wire.WriteBool(s, true)
	return e.encodeValue(s, rv.Elem())
}

func (e *encoder) encodeList(s *wire.Sink, rv reflect.Value) *errval.Error {
	n := rv.Len()
	wire.WriteU32(s, uint32(n))
	for i := 0; i < n; i++ {
		if err := e.encodeValue(s, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeMap(s *wire.Sink, rv reflect.Value) *errval.Error {
	keys := rv.MapKeys()
	wire.WriteU32(s, uint32(len(keys)))
	for _, k := range keys {
		if err := e.encodeValue(s, k); err != nil {
			return err
		}
		if err := e.encodeValue(s, rv.MapIndex(k)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeStructValue(s *wire.Sink, rv reflect.Value) *errval.Error {
	for i := 0; i < rv.NumField(); i++ {
		if err := e.encodeValue(s, rv.Field(i)); err != nil {
			return err
		}
	}
	return nil
}
