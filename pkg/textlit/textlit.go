// Package textlit implements the text-literal parser: it
// recognizes numbers, quoted strings and characters with `%HH` escapes,
// booleans, `null`, `error(...)`, lists, maps, tuples, and type-annotated
// literals `<T>value`, emitting a type-inferred `(T, V)` pair.
package textlit

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ufser-go/ufser/internal/wire"
	"github.com/ufser-go/ufser/pkg/convert"
	"github.com/ufser-go/ufser/pkg/errval"
	"github.com/ufser-go/ufser/pkg/typestring"
)

// Mode selects how heterogeneous containers and map keys are handled.
type Mode int

const (
	// Native is the default mode: heterogeneous lists/maps are a hard error.
	Native Mode = iota
	// Liberal restarts a heterogeneous list as `la` (each element wrapped
	// in `a`) and wraps heterogeneous map values in `a` instead of failing.
	Liberal
	// JSON handles lists and maps as Liberal does and encodes a character
	// literal as a one-byte `s`. Map keys keep their parsed type; only
	// Options.StrictJSONKeys rejects keys that are not `s`.
	JSON
)

// Options controls parsing behavior.
type Options struct {
	Mode Mode
	// Policy gates the conversion a typed literal `<T>value` performs
	// from the parsed value's inferred type to T. The zero value means
	// every conversion is permitted, which is what a literal wants — the
	// author spelled the target type out by hand.
	Policy convert.Policy
	// StrictJSONKeys rejects a JSON-mode map whose keys, once parsed,
	// are not `s`. Off by default; turn on to interoperate with strict
	// JSON consumers.
	StrictJSONKeys bool
}

// Value is a parsed literal's type and serialized value.
type Value struct {
	T []byte
	V []byte
}

// Parse parses the entirety of input as a single literal. Trailing
// non-whitespace bytes are an error.
func Parse(input []byte, opts Options) (Value, *errval.Error) {
	p := &parser{buf: input, opts: opts}
	p.skipSpace()
	val, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.buf) {
		return Value{}, errval.Chrf("textlit", string(input), p.pos)
	}
	return val, nil
}

type parser struct {
	buf  []byte
	pos  int
	opts Options
}

func (p *parser) skipSpace() {
	for p.pos < len(p.buf) {
		switch p.buf[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.buf) {
		return 0
	}
	return p.buf[p.pos]
}

func (p *parser) errHere() *errval.Error {
	return errval.Chrf("textlit", string(p.buf), p.pos)
}

// parseValue dispatches on the next significant byte.
func (p *parser) parseValue() (Value, *errval.Error) {
	p.skipSpace()
	if p.pos >= len(p.buf) {
		return Value{}, nil // void
	}
	switch c := p.peek(); {
	case c == '\'':
		return p.parseChar()
	case c == '"':
		return p.parseString()
	case c == '[':
		return p.parseList()
	case c == '{':
		return p.parseMap()
	case c == '(':
		return p.parseTuple()
	case c == '<':
		return p.parseTyped()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *parser) parseKeyword() (Value, *errval.Error) {
	rest := p.buf[p.pos:]
	switch {
	case hasFoldPrefix(rest, "true"):
		p.pos += 4
		return boolValue(true), nil
	case hasFoldPrefix(rest, "false"):
		p.pos += 5
		return boolValue(false), nil
	case hasFoldPrefix(rest, "null"):
		p.pos += 4
		return Value{}, nil
	case hasFoldPrefix(rest, "error"):
		return p.parseErrorLiteral()
	default:
		return Value{}, p.errHere()
	}
}

func hasFoldPrefix(b []byte, word string) bool {
	if len(b) < len(word) {
		return false
	}
	return strings.EqualFold(string(b[:len(word)]), word)
}

func boolValue(v bool) Value {
	var buf []byte
	wire.WriteBool(wire.NewAppendSink(&buf), v)
	return Value{T: []byte("b"), V: buf}
}

// parseChar parses 'x' or '%HH' -> c.
func (p *parser) parseChar() (Value, *errval.Error) {
	p.pos++ // '\''
	if p.pos >= len(p.buf) {
		return Value{}, p.errHere()
	}
	var b byte
	if p.buf[p.pos] == '%' {
		v, n, err := decodeEscape(p.buf[p.pos:])
		if err != nil {
			return Value{}, err
		}
		b = v
		p.pos += n
	} else {
		b = p.buf[p.pos]
		p.pos++
	}
	if p.pos >= len(p.buf) || p.buf[p.pos] != '\'' {
		return Value{}, p.errHere()
	}
	p.pos++
	if p.opts.Mode == JSON {
		var buf []byte
		wire.WriteString(wire.NewAppendSink(&buf), string([]byte{b}))
		return Value{T: []byte("s"), V: buf}, nil
	}
	return Value{T: []byte("c"), V: []byte{b}}, nil
}

// parseString parses "…" with %HH escapes -> s.
func (p *parser) parseString() (Value, *errval.Error) {
	p.pos++ // '"'
	var out []byte
	for {
		if p.pos >= len(p.buf) {
			return Value{}, p.errHere()
		}
		c := p.buf[p.pos]
		if c == '"' {
			p.pos++
			break
		}
		if c == '%' {
			v, n, err := decodeEscape(p.buf[p.pos:])
			if err != nil {
				return Value{}, err
			}
			out = append(out, v)
			p.pos += n
			continue
		}
		out = append(out, c)
		p.pos++
	}
	var buf []byte
	wire.WriteString(wire.NewAppendSink(&buf), norm.NFC.String(string(out)))
	return Value{T: []byte("s"), V: buf}, nil
}

// decodeEscape decodes a '%HH' escape at the start of b, returning the
// byte and how many bytes of b it consumed (always 3).
func decodeEscape(b []byte) (byte, int, *errval.Error) {
	if len(b) < 3 {
		return 0, 0, errval.Chrf("textlit", string(b), 0)
	}
	v, err := strconv.ParseUint(string(b[1:3]), 16, 8)
	if err != nil {
		return 0, 0, errval.Chrf("textlit", string(b), 1)
	}
	return byte(v), 3, nil
}

// parseNumber parses an integer or float literal.
func (p *parser) parseNumber() (Value, *errval.Error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	if p.opts.Mode != JSON && hasFoldPrefix(p.buf[p.pos:], "0x") {
		p.pos += 2
		hstart := p.pos
		for p.pos < len(p.buf) && isHexDigit(p.buf[p.pos]) {
			p.pos++
		}
		v, err := strconv.ParseUint(string(p.buf[hstart:p.pos]), 16, 64)
		if err != nil {
			return Value{}, errval.Chrf("textlit", string(p.buf), start)
		}
		return intValue(int64(v), v > (1<<31)-1), nil
	}

	isFloat := false
	for p.pos < len(p.buf) && isDigit(p.buf[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.buf) && p.buf[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.buf) && isDigit(p.buf[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.buf) && (p.buf[p.pos] == 'e' || p.buf[p.pos] == 'E') {
		isFloat = true
		p.pos++
		if p.pos < len(p.buf) && (p.buf[p.pos] == '+' || p.buf[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.buf) && isDigit(p.buf[p.pos]) {
			p.pos++
		}
	}

	text := string(p.buf[start:p.pos])
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, errval.Chrf("textlit", string(p.buf), start)
		}
		return doubleValue(f), nil
	}

	iv, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		uv, uerr := strconv.ParseUint(text, 10, 64)
		if uerr != nil {
			return Value{}, errval.Chrf("textlit", string(p.buf), start)
		}
		return intValue(int64(uv), true), nil
	}
	return intValue(iv, iv < -(1<<31) || iv > (1<<31)-1), nil
}

func isDigit(b byte) bool    { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool { return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') }

func intValue(v int64, wide bool) Value {
	var buf []byte
	s := wire.NewAppendSink(&buf)
	if wide {
		wire.WriteI64(s, v)
		return Value{T: []byte("I"), V: buf}
	}
	wire.WriteI32(s, int32(v))
	return Value{T: []byte("i"), V: buf}
}

func doubleValue(f float64) Value {
	var buf []byte
	wire.WriteF64(wire.NewAppendSink(&buf), f)
	return Value{T: []byte("d"), V: buf}
}

// parseList parses `[e1,e2,...]`.
func (p *parser) parseList() (Value, *errval.Error) {
	p.pos++ // '['
	elems, err := p.parseValueList(']')
	if err != nil {
		return Value{}, err
	}
	p.pos++ // ']'

	if len(elems) == 0 {
		// Nothing to infer an element type from; `la` holds anything.
		var buf []byte
		wire.WriteU32(wire.NewAppendSink(&buf), 0)
		return Value{T: []byte("la"), V: buf}, nil
	}

	elemT := elems[0].T
	uniform := true
	offender := elemT
	for _, e := range elems[1:] {
		if !bytes.Equal(e.T, elemT) {
			uniform = false
			offender = e.T
			break
		}
	}

	if uniform {
		var buf []byte
		s := wire.NewAppendSink(&buf)
		wire.WriteU32(s, uint32(len(elems)))
		for _, e := range elems {
			s.Write(e.V)
		}
		t := append([]byte("l"), elemT...)
		return Value{T: t, V: buf}, nil
	}

	if p.opts.Mode == Native {
		return Value{}, errval.Mismatch("textlit", string(elemT), 0, string(offender), 0)
	}
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteU32(s, uint32(len(elems)))
	for _, e := range elems {
		wrapAnyLiteral(e, s)
	}
	return Value{T: []byte("la"), V: buf}, nil
}

func wrapAnyLiteral(v Value, s *wire.Sink) {
	wire.WriteU32(s, uint32(len(v.T)))
	s.Write(v.T)
	wire.WriteU32(s, uint32(len(v.V)))
	s.Write(v.V)
}

// parseValueList parses a separator-delimited run of values up to (but
// not consuming) close.
func (p *parser) parseValueList(close byte) ([]Value, *errval.Error) {
	var out []Value
	p.skipSpace()
	if p.peek() == close {
		return out, nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		c := p.peek()
		if c == ',' || c == ';' {
			p.pos++
			p.skipSpace()
			continue
		}
		if c == close {
			return out, nil
		}
		return nil, p.errHere()
	}
}

// parseMap parses `{k:v,...}`.
func (p *parser) parseMap() (Value, *errval.Error) {
	p.pos++ // '{'
	var keys, vals []Value
	p.skipSpace()
	if p.peek() != '}' {
		for {
			k, err := p.parseValue()
			if err != nil {
				return Value{}, err
			}
			p.skipSpace()
			if p.peek() != ':' {
				return Value{}, p.errHere()
			}
			p.pos++
			v, err := p.parseValue()
			if err != nil {
				return Value{}, err
			}
			keys = append(keys, k)
			vals = append(vals, v)
			p.skipSpace()
			c := p.peek()
			if c == ',' || c == ';' {
				p.pos++
				p.skipSpace()
				continue
			}
			break
		}
	}
	if p.peek() != '}' {
		return Value{}, p.errHere()
	}
	p.pos++ // '}'

	if len(keys) == 0 {
		var buf []byte
		wire.WriteU32(wire.NewAppendSink(&buf), 0)
		return Value{T: []byte("msa"), V: buf}, nil
	}

	if p.opts.Mode == JSON {
		for i := range keys {
			if !bytes.Equal(keys[i].T, []byte("s")) {
				if p.opts.StrictJSONKeys {
					return Value{}, errval.Mismatch("textlit", string(keys[i].T), 0, "s", 0)
				}
			}
		}
	}

	keyT := keys[0].T
	keyUniform := true
	for _, k := range keys[1:] {
		if !bytes.Equal(k.T, keyT) {
			keyUniform = false
			break
		}
	}
	valT := vals[0].T
	valUniform := true
	for _, v := range vals[1:] {
		if !bytes.Equal(v.T, valT) {
			valUniform = false
			break
		}
	}

	if !keyUniform {
		return Value{}, errval.NotSerializable("textlit", "heterogeneous map keys")
	}

	if valUniform {
		var buf []byte
		s := wire.NewAppendSink(&buf)
		wire.WriteU32(s, uint32(len(keys)))
		for i := range keys {
			s.Write(keys[i].V)
			s.Write(vals[i].V)
		}
		t := append(append([]byte("m"), keyT...), valT...)
		return Value{T: t, V: buf}, nil
	}

	if p.opts.Mode == Native {
		return Value{}, errval.NotSerializable("textlit", "heterogeneous map values")
	}
	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteU32(s, uint32(len(keys)))
	for i := range keys {
		s.Write(keys[i].V)
		wrapAnyLiteral(vals[i], s)
	}
	t := append(append([]byte("m"), keyT...), 'a')
	return Value{T: t, V: buf}, nil
}

// parseTuple parses `(e1,...,eN)`, N>=2.
func (p *parser) parseTuple() (Value, *errval.Error) {
	p.pos++ // '('
	elems, err := p.parseValueList(')')
	if err != nil {
		return Value{}, err
	}
	p.pos++ // ')'
	if len(elems) < 2 {
		return Value{}, errval.Numf("textlit", string(p.buf), p.pos)
	}

	var tbuf []byte
	tbuf = append(tbuf, []byte("t"+strconv.Itoa(len(elems)))...)
	var vbuf []byte
	s := wire.NewAppendSink(&vbuf)
	for _, e := range elems {
		tbuf = append(tbuf, e.T...)
		s.Write(e.V)
	}
	return Value{T: tbuf, V: vbuf}, nil
}

// parseTyped parses `<T>value` or `<T>` (void value).
func (p *parser) parseTyped() (Value, *errval.Error) {
	p.pos++ // '<'
	start := p.pos
	for p.pos < len(p.buf) && p.buf[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= len(p.buf) {
		return Value{}, p.errHere()
	}
	typeStr := p.buf[start:p.pos]
	p.pos++ // '>'

	if err := typestring.ValidateFull(typeStr, true); err != nil {
		return Value{}, err
	}

	var inner Value
	p.skipSpace()
	switch p.peek() {
	case ',', ':', ')', ']', '}':
		// `<T>` directly followed by a separator or closer: void value.
	default:
		var err *errval.Error
		inner, err = p.parseValue()
		if err != nil {
			return Value{}, err
		}
	}

	if bytes.Equal(inner.T, typeStr) {
		return Value{T: typeStr, V: inner.V}, nil
	}
	policy := p.opts.Policy
	if policy == convert.None {
		policy = convert.All
	}
	out, cerr := convert.Convert(inner.T, inner.V, typeStr, policy, nil)
	if cerr != nil {
		return Value{}, cerr
	}
	return Value{T: typeStr, V: out}, nil
}

// parseErrorLiteral parses `error(...)`.
func (p *parser) parseErrorLiteral() (Value, *errval.Error) {
	p.pos += len("error")
	p.skipSpace()
	if p.peek() != '(' {
		return Value{}, p.errHere()
	}
	p.pos++
	args, err := p.parseValueList(')')
	if err != nil {
		return Value{}, err
	}
	p.pos++ // ')'
	if len(args) == 0 || len(args) > 4 {
		return Value{}, errval.Numf("textlit", string(p.buf), p.pos)
	}

	kind, id, message := "", "", ""
	var payload Value

	switch len(args) {
	case 1:
		message = asString(args[0])
	case 2:
		kind = asString(args[0])
		id = asString(args[1])
	case 3:
		kind = asString(args[0])
		id = asString(args[1])
		message = asString(args[2])
	case 4:
		kind = asString(args[0])
		id = asString(args[1])
		message = asString(args[2])
		payload = args[3]
	}

	var buf []byte
	s := wire.NewAppendSink(&buf)
	wire.WriteString(s, kind)
	wire.WriteString(s, id)
	wire.WriteString(s, message)
	wrapAnyLiteral(payload, s)
	return Value{T: []byte("e"), V: buf}, nil
}

func asString(v Value) string {
	if len(v.T) == 1 && v.T[0] == 's' {
		view, _, _ := wire.ReadStringView(v.V)
		return string(view)
	}
	return ""
}
