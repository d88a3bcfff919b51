package typestring

import (
	"strconv"

	"github.com/ufser-go/ufser/pkg/errval"
)

// frame tracks how many more immediate children the container at this
// stack level is still waiting for.
type frame struct {
	remaining int
}

// Parser validates a type descriptor one byte at a time and can be fed
// the string in arbitrarily sized chunks. Construct with New, call Feed
// for each chunk, and Finish once no more input is coming.
type Parser struct {
	allowVoid bool
	pos       int
	started   bool
	done      bool

	stack []frame

	inDigits   bool
	digitVal   int
	digitCount int
	digitStart int
}

// New returns a fresh Parser. allowVoid controls whether an input that
// never produces a single byte is accepted as the void type.
func New(allowVoid bool) *Parser {
	return &Parser{allowVoid: allowVoid}
}

// Pos returns the total number of bytes consumed across all Feed calls.
func (p *Parser) Pos() int { return p.pos }

// Done reports whether the type has been fully parsed.
func (p *Parser) Done() bool { return p.done }

// Feed processes chunk and returns how many leading bytes of chunk were
// consumed by this type (may be less than len(chunk) if the type closed
// mid-chunk; the remainder belongs to whatever follows), whether the
// type is now fully parsed, and an error if the grammar was violated.
func (p *Parser) Feed(chunk []byte) (consumed int, done bool, err *errval.Error) {
	if p.done {
		return 0, true, nil
	}

	i := 0
	for i < len(chunk) {
		b := chunk[i]

		if p.inDigits {
			if isDigit(b) {
				p.digitVal = p.digitVal*10 + int(b-'0')
				p.digitCount++
				p.pos++
				i++
				continue
			}
			// Digit run ends here; finalize the tuple arity, then
			// re-process b against the newly pushed frame.
			if e := p.closeDigits(); e != nil {
				return i, false, e
			}
		}

		p.started = true
		if !validChar(b) {
			return i, false, errval.Chrf("typestring", "", p.pos)
		}

		c := Char(b)
		p.pos++
		i++

		if c == Tuple {
			p.inDigits = true
			p.digitVal = 0
			p.digitCount = 0
			p.digitStart = p.pos
			continue
		}

		arity := Arity(c)
		if arity > 0 {
			p.stack = append(p.stack, frame{remaining: arity})
			continue
		}

		// Zero-arity token: it closes immediately; cascade the closure
		// up through any containers that are now fully satisfied.
		if closed := p.closeOne(); closed {
			return i, true, nil
		}
	}

	return i, false, nil
}

// closeDigits finalizes an in-progress tuple arity after its digit run
// ends (either because a non-digit byte arrived or input ended).
func (p *Parser) closeDigits() *errval.Error {
	p.inDigits = false
	if p.digitCount == 0 || p.digitVal < 2 {
		return errval.Numf("typestring", "", p.digitStart)
	}
	p.stack = append(p.stack, frame{remaining: p.digitVal})
	return nil
}

// closeOne accounts for one more closed leaf/subtree, decrementing the
// parent frame and cascading further closures upward. Returns true if
// the whole type is now complete (the stack is empty).
func (p *Parser) closeOne() bool {
	for len(p.stack) > 0 {
		top := &p.stack[len(p.stack)-1]
		top.remaining--
		if top.remaining > 0 {
			return false
		}
		p.stack = p.stack[:len(p.stack)-1]
	}
	p.done = true
	return true
}

// Finish signals that no further chunks are coming. It reports whether
// the type is complete and, if not, the End/Num error that explains why.
func (p *Parser) Finish() (bool, *errval.Error) {
	if p.done {
		return true, nil
	}
	if p.inDigits {
		if e := p.closeDigits(); e != nil {
			return false, e
		}
	}
	if !p.started {
		if p.allowVoid {
			p.done = true
			return true, nil
		}
		return false, errval.Endf("typestring", "", p.pos)
	}
	if len(p.stack) > 0 {
		return false, errval.Endf("typestring", "", p.pos)
	}
	p.done = true
	return true, nil
}

// Validate runs the grammar over a complete, already-buffered type
// string, accepting void iff allowVoid. It returns the number of bytes
// consumed (useful when t is a prefix of a larger buffer, e.g. a
// container's remaining type run) and any grammar error.
func Validate(t []byte, allowVoid bool) (consumed int, err *errval.Error) {
	p := New(allowVoid)
	n, done, e := p.Feed(t)
	if e != nil {
		return n, e
	}
	if done {
		return n, nil
	}
	if _, e := p.Finish(); e != nil {
		return n, e
	}
	return n, nil
}

// ValidateFull additionally requires that t is consumed exactly, with no
// trailing bytes left over — the shape callers want when T is the whole
// descriptor rather than a sub-slice of a larger one.
func ValidateFull(t []byte, allowVoid bool) *errval.Error {
	n, err := Validate(t, allowVoid)
	if err != nil {
		return err
	}
	if n != len(t) {
		return errval.Chrf("typestring", string(t), n)
	}
	return nil
}

// TypeChar returns the first token's character. Panics if t is empty;
// callers must check for void first.
func TypeChar(t []byte) Char { return Char(t[0]) }

// TupleArity parses the decimal digits immediately after a leading 't'
// and returns the arity plus how many digit bytes were consumed.
func TupleArity(t []byte) (n int, digits int, err *errval.Error) {
	i := 0
	for i < len(t) && isDigit(t[i]) {
		i++
	}
	if i == 0 {
		return 0, 0, errval.Numf("typestring", string(t), 0)
	}
	val, convErr := strconv.Atoi(string(t[:i]))
	if convErr != nil || val < 2 {
		return 0, i, errval.Numf("typestring", string(t), 0)
	}
	return val, i, nil
}
