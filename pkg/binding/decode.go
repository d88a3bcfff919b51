package binding

import (
	"fmt"
	"reflect"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// Decode unmarshals a serialized (T, V) pair into out, which must be a
// non-nil pointer. Decode does not itself convert T to out's natural
// type; callers that need implicit conversion should run the value
// through pkg/convert first.
func Decode(t, v []byte, out any) *errval.Error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errval.APIErr("binding", "Decode requires a non-nil pointer")
	}
	d := &decoder{}
	_, err := d.decodeValue(t, v, rv.Elem())
	return err
}

type decoder struct{}

func (d *decoder) decodeValue(t, v []byte, rv reflect.Value) (int, *errval.Error) {
	if len(t) == 0 {
		return 0, nil
	}
	head := typestring.Char(t[0])
	switch head {
	case typestring.Bool:
		b, n, err := wire.ReadBool(v)
		if err != nil {
			return 0, err
		}
		rv.SetBool(b)
		return n, nil
	case typestring.Byte:
		b, n, err := wire.ReadByte(v)
		if err != nil {
			return 0, err
		}
		rv.SetUint(uint64(b))
		return n, nil
	case typestring.Int32:
		i, n, err := wire.ReadI32(v)
		if err != nil {
			return 0, err
		}
		rv.SetInt(int64(i))
		return n, nil
	case typestring.Int64:
		i, n, err := wire.ReadI64(v)
		if err != nil {
			return 0, err
		}
		rv.SetInt(i)
		return n, nil
	case typestring.Double:
		f, n, err := wire.ReadF64(v)
		if err != nil {
			return 0, err
		}
		rv.SetFloat(f)
		return n, nil
	case typestring.String:
		str, n, err := wire.ReadStringOwned(v)
		if err != nil {
			return 0, err
		}
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			rv.SetBytes([]byte(str))
		} else {
			rv.SetString(str)
		}
		return n, nil
	case typestring.Any:
		return d.decodeAny(v, rv)
	case typestring.Opt:
		return d.decodeOpt(t, v, rv)
	case typestring.List:
		return d.decodeList(t, v, rv)
	case typestring.Map:
		return d.decodeMap(t, v, rv)
	case typestring.Tuple:
		return d.decodeTuple(t, v, rv)
	default:
		return 0, errval.APIErr("binding", fmt.Sprintf("cannot decode type token %q into a Go value", string(head)))
	}
}

func (d *decoder) decodeAny(v []byte, rv reflect.Value) (int, *errval.Error) {
	tlen, n1, err := wire.ReadU32(v)
	if err != nil {
		return 0, err
	}
	innerT := v[n1 : n1+int(tlen)]
	off := n1 + int(tlen)
	vlen, n2, err := wire.ReadU32(v[off:])
	if err != nil {
		return 0, err
	}
	off += n2
	innerV := v[off : off+int(vlen)]

	if rv.Kind() != reflect.Interface || rv.IsNil() {
		return off + int(vlen), errval.APIErr("binding", "decoding `a` requires a pre-populated interface target")
	}
	elem := reflect.New(rv.Elem().Type()).Elem()
	if _, err := d.decodeValue(innerT, innerV, elem); err != nil {
		return 0, err
	}
	rv.Set(elem)
	return off + int(vlen), nil
}

func (d *decoder) decodeOpt(t, v []byte, rv reflect.Value) (int, *errval.Error) {
	has, n1, err := wire.ReadBool(v)
	if err != nil {
		return 0, err
	}
	if !has {
		rv.Set(reflect.Zero(rv.Type()))
		return n1, nil
	}
	if rv.Kind() != reflect.Ptr {
		return 0, errval.APIErr("binding", "decoding `o` requires a pointer target")
	}
	children, cerr := typestring.Children(t)
	if cerr != nil {
		return 0, cerr
	}
	target := reflect.New(rv.Type().Elem())
	n2, err := d.decodeValue(children[0], v[n1:], target.Elem())
	if err != nil {
		return 0, err
	}
	rv.Set(target)
	return n1 + n2, nil
}

func (d *decoder) decodeList(t, v []byte, rv reflect.Value) (int, *errval.Error) {
	children, cerr := typestring.Children(t)
	if cerr != nil {
		return 0, cerr
	}
	elemT := children[0]
	count, off, err := wire.ReadU32(v)
	if err != nil {
		return 0, err
	}
	out := reflect.MakeSlice(rv.Type(), int(count), int(count))
	for i := 0; i < int(count); i++ {
		n, err := d.decodeValue(elemT, v[off:], out.Index(i))
		if err != nil {
			return 0, err
		}
		off += n
	}
	rv.Set(out)
	return off, nil
}

func (d *decoder) decodeMap(t, v []byte, rv reflect.Value) (int, *errval.Error) {
	children, cerr := typestring.Children(t)
	if cerr != nil {
		return 0, cerr
	}
	keyT, valT := children[0], children[1]
	count, off, err := wire.ReadU32(v)
	if err != nil {
		return 0, err
	}
	out := reflect.MakeMapWithSize(rv.Type(), int(count))
	for i := 0; i < int(count); i++ {
		key := reflect.New(rv.Type().Key()).Elem()
		n, err := d.decodeValue(keyT, v[off:], key)
		if err != nil {
			return 0, err
		}
		off += n
		val := reflect.New(rv.Type().Elem()).Elem()
		n, err = d.decodeValue(valT, v[off:], val)
		if err != nil {
			return 0, err
		}
		off += n
		out.SetMapIndex(key, val)
	}
	rv.Set(out)
	return off, nil
}

func (d *decoder) decodeTuple(t, v []byte, rv reflect.Value) (int, *errval.Error) {
	if rv.Kind() != reflect.Struct {
		return 0, errval.APIErr("binding", "decoding `t` requires a struct target")
	}
	fields, cerr := typestring.Children(t)
	if cerr != nil {
		return 0, cerr
	}
	if len(fields) != rv.NumField() {
		return 0, errval.APIErr("binding", "tuple arity does not match struct field count")
	}
	off := 0
	for i, ft := range fields {
		n, err := d.decodeValue(ft, v[off:], rv.Field(i))
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off, nil
}
