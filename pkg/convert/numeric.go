package convert

import (
	"math"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
)

var rank = map[byte]int{'c': 1, 'i': 2, 'I': 3}

func isWidening(src, tgt byte) bool {
	sr, sok := rank[src]
	tr, tok := rank[tgt]
	if !sok || !tok {
		return false
	}
	return tr > sr
}

// numericAllowed reports whether the scalar edge src->tgt is permitted
// by policy.
func numericAllowed(src, tgt byte, policy Policy) bool {
	if src == tgt {
		return true
	}
	if src == 'b' || tgt == 'b' {
		return policy.Has(Bool)
	}
	if src == 'd' || tgt == 'd' {
		return policy.Has(Double)
	}
	if isWidening(src, tgt) {
		return policy.Has(Ints)
	}
	return policy.Has(IntsNarrowing)
}

type scalar struct {
	i       int64
	f       float64
	isFloat bool
}

func readScalar(c byte, v []byte) (scalar, int, *errval.Error) {
	switch c {
	case 'b':
		b, n, err := wire.ReadBool(v)
		if err != nil {
			return scalar{}, 0, err
		}
		if b {
			return scalar{i: 1}, n, nil
		}
		return scalar{i: 0}, n, nil
	case 'c':
		b, n, err := wire.ReadByte(v)
		if err != nil {
			return scalar{}, 0, err
		}
		return scalar{i: int64(b)}, n, nil
	case 'i':
		iv, n, err := wire.ReadI32(v)
		if err != nil {
			return scalar{}, 0, err
		}
		return scalar{i: int64(iv)}, n, nil
	case 'I':
		iv, n, err := wire.ReadI64(v)
		if err != nil {
			return scalar{}, 0, err
		}
		return scalar{i: iv}, n, nil
	case 'd':
		fv, n, err := wire.ReadF64(v)
		if err != nil {
			return scalar{}, 0, err
		}
		return scalar{f: fv, isFloat: true}, n, nil
	}
	return scalar{}, 0, errval.Chrf("convert", string(c), 0)
}

// writeScalar casts s into the wire representation of tgt. The policy
// gate for attempting a narrowing edge sits in numericAllowed; a value
// that genuinely overflows the target still traps here.
func writeScalar(tgt byte, s scalar, out *wire.Sink) *errval.Error {
	switch tgt {
	case 'b':
		var b bool
		if s.isFloat {
			b = s.f != 0
		} else {
			b = s.i != 0
		}
		wire.WriteBool(out, b)
	case 'c':
		var v int64
		if s.isFloat {
			v = int64(s.f)
		} else {
			v = s.i
		}
		if v < 0 || v > 255 {
			return errval.APIErr("convert", "overflow converting to 'c'")
		}
		wire.WriteByteVal(out, byte(v))
	case 'i':
		var v int64
		if s.isFloat {
			v = int64(s.f)
		} else {
			v = s.i
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return errval.APIErr("convert", "overflow converting to 'i'")
		}
		wire.WriteI32(out, int32(v))
	case 'I':
		var v int64
		if s.isFloat {
			if s.f < math.MinInt64 || s.f >= math.MaxInt64 {
				return errval.APIErr("convert", "overflow converting to 'I'")
			}
			v = int64(s.f)
		} else {
			v = s.i
		}
		wire.WriteI64(out, v)
	case 'd':
		var f float64
		if s.isFloat {
			f = s.f
		} else {
			f = float64(s.i)
		}
		wire.WriteF64(out, f)
	}
	return nil
}
