// Package printer implements the dual-mode pretty printer: a native `<T>value` form with `(...)` tuples and `[...]` lists,
// and a JSON-like form with no type tags, `null` for void, and tuples
// rendered as arrays.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/scan"
	"github.com/ufser-go/ufser/pkg/typestring"
)

func scanLen(t, v []byte) (int, *errval.Error) {
	res, err := scan.Scan(t, v, false)
	if err != nil {
		return 0, err
	}
	return res.VConsumed, nil
}

// Format selects the printer's output shape.
type Format int

const (
	// Native prints `<T>value` with type tags.
	Native Format = iota
	// JSONLike prints without type tags, `null` for void.
	JSONLike
)

// DefaultMaxLen is the MaxLen of a zero Options; Print treats 0 as no limit.
const DefaultMaxLen = 0 // 0 means unlimited

// Options controls printing behavior.
type Options struct {
	Format Format
	// MaxLen budgets the emitted byte length; 0 means unlimited. When
	// the budget is exceeded, Print returns the "too long" sentinel.
	MaxLen int
	// StrictJSONKeys rejects non-string map keys in JSONLike format
	// instead of silently stringifying them, for interop with strict
	// JSON consumers.
	StrictJSONKeys bool
}

// TooLong is the sentinel returned by Print when the output exceeds
// Options.MaxLen.
var TooLong = &errval.Error{Kind: errval.API, Op: "printer", Detail: "output exceeded max_len"}

// Print renders (t, v) according to opts. The top-level value is tagged
// with its type in Native format; nested fields inside a container are
// not individually re-tagged, since the container's own tag already
// names their types — only a nested `a` gets a fresh tag, since it is
// the one place the type isn't already known from the enclosing T.
func Print(t, v []byte, opts Options) (string, *errval.Error) {
	p := &printer{opts: opts}
	if err := p.printTagged(t, v); err != nil {
		return "", err
	}
	if opts.MaxLen > 0 && p.b.Len() > opts.MaxLen {
		return "", TooLong
	}
	return p.b.String(), nil
}

type printer struct {
	opts Options
	b    strings.Builder
}

func (p *printer) overBudget() bool {
	return p.opts.MaxLen > 0 && p.b.Len() > p.opts.MaxLen
}

// printTagged prints t's own `<T>` tag (Native only) followed by its body.
func (p *printer) printTagged(t, v []byte) *errval.Error {
	if p.overBudget() {
		return TooLong
	}
	if len(t) == 0 {
		p.writeVoid()
		return nil
	}
	if p.opts.Format == Native {
		p.b.WriteByte('<')
		p.b.WriteString(string(t))
		p.b.WriteByte('>')
	}
	return p.printValue(t, v)
}

// printValue prints t's body without a leading `<T>` tag.
func (p *printer) printValue(t, v []byte) *errval.Error {
	if p.overBudget() {
		return TooLong
	}
	if len(t) == 0 {
		p.writeVoid()
		return nil
	}
	return p.printBody(typestring.Char(t[0]), t, v)
}

func (p *printer) writeVoid() {
	if p.opts.Format == JSONLike {
		p.b.WriteString("null")
	}
}

func (p *printer) printBody(head typestring.Char, t, v []byte) *errval.Error {
	switch head {
	case typestring.Bool:
		b, _, err := wire.ReadBool(v)
		if err != nil {
			return err
		}
		p.b.WriteString(strconv.FormatBool(b))
	case typestring.Byte:
		b, _, err := wire.ReadByte(v)
		if err != nil {
			return err
		}
		if p.opts.Format == Native {
			fmt.Fprintf(&p.b, "'%s'", escapeChar(b))
		} else {
			p.b.WriteString(strconv.Itoa(int(b)))
		}
	case typestring.Int32:
		iv, _, err := wire.ReadI32(v)
		if err != nil {
			return err
		}
		p.b.WriteString(strconv.FormatInt(int64(iv), 10))
	case typestring.Int64:
		iv, _, err := wire.ReadI64(v)
		if err != nil {
			return err
		}
		p.b.WriteString(strconv.FormatInt(iv, 10))
	case typestring.Double:
		fv, _, err := wire.ReadF64(v)
		if err != nil {
			return err
		}
		p.b.WriteString(strconv.FormatFloat(fv, 'g', -1, 64))
	case typestring.String:
		view, _, err := wire.ReadStringView(v)
		if err != nil {
			return err
		}
		if p.opts.Format == Native {
			p.writeQuotedString([]byte(norm.NFC.String(string(view))))
		} else {
			p.writeQuotedString(view)
		}
	case typestring.Any:
		return p.printAny(v)
	case typestring.ErrRec:
		return p.printErrorRecord(v)
	case typestring.ExpectV:
		return p.printExpectedVoid(v)
	case typestring.Opt:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return cerr
		}
		return p.printOptional(children[0], v)
	case typestring.Expect:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return cerr
		}
		return p.printExpected(children[0], v)
	case typestring.List:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return cerr
		}
		return p.printList(children[0], v)
	case typestring.Map:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return cerr
		}
		return p.printMap(children[0], children[1], v)
	case typestring.Tuple:
		children, cerr := typestring.Children(t)
		if cerr != nil {
			return cerr
		}
		return p.printTuple(children, v)
	default:
		return errval.Chrf("printer", string(t), 0)
	}
	return nil
}

func escapeChar(b byte) string {
	if b >= 0x20 && b < 0x7f && b != '\'' && b != '%' {
		return string([]byte{b})
	}
	return fmt.Sprintf("%%%02X", b)
}

func (p *printer) writeQuotedString(s []byte) {
	p.b.WriteByte('"')
	for _, c := range s {
		if c < 0x20 || c == '"' || c == '%' || c > 0x7e {
			fmt.Fprintf(&p.b, "%%%02X", c)
			continue
		}
		p.b.WriteByte(c)
	}
	p.b.WriteByte('"')
}

// printAny delegates to a recursive call with the inner type
func (p *printer) printAny(v []byte) *errval.Error {
	tlen, n1, err := wire.ReadU32(v)
	if err != nil {
		return err
	}
	off := n1
	innerT := v[off : off+int(tlen)]
	off += int(tlen)
	vlen, n2, err := wire.ReadU32(v[off:])
	if err != nil {
		return err
	}
	off += n2
	innerV := v[off : off+int(vlen)]
	return p.printTagged(innerT, innerV)
}

func (p *printer) printErrorRecord(v []byte) *errval.Error {
	kind, n1, err := wire.ReadStringOwned(v)
	if err != nil {
		return err
	}
	id, n2, err := wire.ReadStringOwned(v[n1:])
	if err != nil {
		return err
	}
	msg, n3, err := wire.ReadStringOwned(v[n1+n2:])
	if err != nil {
		return err
	}
	payload := v[n1+n2+n3:]

	if p.opts.Format == Native {
		fmt.Fprintf(&p.b, "error(%s, %s, %s, ", quoteGo(kind), quoteGo(id), quoteGo(msg))
		if perr := p.printAny(payload); perr != nil {
			return perr
		}
		p.b.WriteByte(')')
		return nil
	}

	p.b.WriteByte('{')
	fmt.Fprintf(&p.b, "%q:%q,%q:%q,%q:%q,%q:", "kind", kind, "id", id, "message", msg, "payload")
	if perr := p.printAny(payload); perr != nil {
		return perr
	}
	p.b.WriteByte('}')
	return nil
}

func quoteGo(s string) string { return strconv.Quote(s) }

func (p *printer) printExpectedVoid(v []byte) *errval.Error {
	has, n, err := wire.ReadBool(v)
	if err != nil {
		return err
	}
	if has {
		p.writeVoid()
		return nil
	}
	return p.printErrorRecord(v[n:])
}

func (p *printer) printOptional(elemT, v []byte) *errval.Error {
	has, n, err := wire.ReadBool(v)
	if err != nil {
		return err
	}
	if !has {
		p.writeVoid()
		return nil
	}
	return p.printValue(elemT, v[n:])
}

func (p *printer) printExpected(elemT, v []byte) *errval.Error {
	has, n, err := wire.ReadBool(v)
	if err != nil {
		return err
	}
	if has {
		return p.printValue(elemT, v[n:])
	}
	return p.printErrorRecord(v[n:])
}

func (p *printer) printList(elemT, v []byte) *errval.Error {
	count, n, err := wire.ReadU32(v)
	if err != nil {
		return err
	}
	off := n
	p.b.WriteByte('[')
	for i := uint32(0); i < count; i++ {
		if i > 0 {
			p.b.WriteByte(',')
		}
		vn, verr := p.scanAndPrint(elemT, v[off:])
		if verr != nil {
			return verr
		}
		off += vn
		if p.overBudget() {
			return TooLong
		}
	}
	p.b.WriteByte(']')
	return nil
}

func (p *printer) printMap(keyT, valT, v []byte) *errval.Error {
	count, n, err := wire.ReadU32(v)
	if err != nil {
		return err
	}
	off := n
	p.b.WriteByte('{')
	for i := uint32(0); i < count; i++ {
		if i > 0 {
			p.b.WriteByte(',')
		}
		kn, kerr := p.scanAndPrintKey(keyT, v[off:])
		if kerr != nil {
			return kerr
		}
		off += kn
		p.b.WriteByte(':')
		vn, verr := p.scanAndPrint(valT, v[off:])
		if verr != nil {
			return verr
		}
		off += vn
		if p.overBudget() {
			return TooLong
		}
	}
	p.b.WriteByte('}')
	return nil
}

// scanAndPrintKey renders a map key. In JSONLike mode a non-string key
// is rendered as a quoted string of its native text, honoring
// StrictJSONKeys by refusing non-string keys outright instead.
func (p *printer) scanAndPrintKey(keyT, v []byte) (int, *errval.Error) {
	if p.opts.Format == JSONLike && typestring.Char(keyT[0]) != typestring.String {
		if p.opts.StrictJSONKeys {
			return 0, errval.Mismatch("printer", string(keyT), 0, "s", 0)
		}
		res, err := scanLen(keyT, v)
		if err != nil {
			return 0, err
		}
		sub := &printer{opts: Options{Format: Native}}
		if perr := sub.printValue(keyT, v[:res]); perr != nil {
			return 0, perr
		}
		p.writeQuotedString([]byte(sub.b.String()))
		return res, nil
	}
	return p.scanAndPrint(keyT, v)
}

func (p *printer) scanAndPrint(t, v []byte) (int, *errval.Error) {
	n, err := scanLen(t, v)
	if err != nil {
		return 0, err
	}
	if perr := p.printValue(t, v[:n]); perr != nil {
		return 0, perr
	}
	return n, nil
}

func (p *printer) printTuple(fields [][]byte, v []byte) *errval.Error {
	open, close := byte('('), byte(')')
	if p.opts.Format == JSONLike {
		open, close = '[', ']'
	}
	p.b.WriteByte(open)
	off := 0
	for i, f := range fields {
		if i > 0 {
			p.b.WriteByte(',')
		}
		n, err := p.scanAndPrint(f, v[off:])
		if err != nil {
			return err
		}
		off += n
		if p.overBudget() {
			return TooLong
		}
	}
	p.b.WriteByte(close)
	return nil
}
