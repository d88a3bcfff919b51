// Package convert implements the conversion state machine between two
// type descriptors: given (source_T, source_V, target_T) it produces
// either an error or the serialized target_V, gated by a
// conversion-policy bitset.
package convert

// Policy is the bitset of permitted implicit conversions.
type Policy uint16

const (
	// Bool permits bool<->other numeric/byte edges.
	Bool Policy = 1 << iota
	// Ints permits widening between i/I (and promoting c into them).
	Ints
	// IntsNarrowing additionally permits narrowing, with overflow trapping.
	IntsNarrowing
	// Double permits int<->double.
	Double
	// Expected permits wrapping/unwrapping x/X.
	Expected
	// Any permits wrapping/unwrapping a.
	Any
	// Aux permits s<->lc and void<->oT.
	Aux
	// TupleList permits lT<->t<N>U...U.
	TupleList
)

// None permits only the identity conversion.
const None Policy = 0

// All is the union of every policy bit.
const All = Bool | Ints | IntsNarrowing | Double | Expected | Any | Aux | TupleList

// Numeric permits only conversions between numeric-ish scalars: bool,
// byte/int32/int64 widening and narrowing, and int<->double.
const Numeric = Bool | Ints | IntsNarrowing | Double

// Lossless is All without IntsNarrowing (which can overflow): it keeps
// every other bit, including the structural a/x/X/lc<->s/tuple edges.
// The Bool and Double edges stay permitted, so conversions such as
// i->b or d->i can still discard information.
const Lossless = Bool | Ints | Double | Expected | Any | Aux | TupleList

// Has reports whether every bit in bit is set in p.
func (p Policy) Has(bit Policy) bool { return p&bit == bit }

// Union returns p extended with bit. Conversion is monotonic in the
// policy: anything that converts under p converts identically under
// any superset of p.
func (p Policy) Union(bit Policy) Policy { return p | bit }
