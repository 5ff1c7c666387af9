// Package datum implements WeaselDB's typed value representation and its
// bytewise serialization, per spec 3 and 4.1.
package datum

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind tags the variant a Datum holds.
type Kind int

const (
	Null Kind = iota
	Int8
	Float4
	Text
	Bool
	Bytea
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "NULL"
	case Int8:
		return "INT8"
	case Float4:
		return "FLOAT4"
	case Text:
		return "TEXT"
	case Bool:
		return "BOOL"
	case Bytea:
		return "BYTEA"
	case Timestamp:
		return "TIMESTAMP"
	}
	return "UNKNOWN"
}

// ParseKind maps an uppercased DDL/CAST type name to a Kind.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToUpper(name) {
	case "INT8":
		return Int8, true
	case "FLOAT4":
		return Float4, true
	case "TEXT":
		return Text, true
	case "BOOL":
		return Bool, true
	case "BYTEA":
		return Bytea, true
	case "TIMESTAMP":
		return Timestamp, true
	}
	return Null, false
}

// Datum is a tagged value, per spec 3.
type Datum struct {
	kind Kind
	i    int64
	f    float32
	s    string
	b    []byte
	bl   bool
}

func NewNull() Datum                  { return Datum{kind: Null} }
func NewInt8(v int64) Datum           { return Datum{kind: Int8, i: v} }
func NewFloat4(v float32) Datum       { return Datum{kind: Float4, f: v} }
func NewText(v string) Datum          { return Datum{kind: Text, s: v} }
func NewBool(v bool) Datum            { return Datum{kind: Bool, bl: v} }
func NewBytea(v []byte) Datum         { return Datum{kind: Bytea, b: append([]byte(nil), v...)} }
func NewTimestamp(secs int64) Datum   { return Datum{kind: Timestamp, i: secs} }

func (d Datum) Kind() Kind    { return d.kind }
func (d Datum) IsNull() bool  { return d.kind == Null }
func (d Datum) AsInt8() int64 { return d.i }
func (d Datum) AsFloat4() float32 { return d.f }
func (d Datum) AsText() string    { return d.s }
func (d Datum) AsBool() bool      { return d.bl }
func (d Datum) AsBytea() []byte   { return d.b }
func (d Datum) AsTimestamp() int64 { return d.i }

// numeric reports whether d's value coerces to a float64 for arithmetic,
// widening Int8 as spec 4.1 requires.
func (d Datum) numeric() (float64, bool) {
	switch d.kind {
	case Int8, Timestamp:
		return float64(d.i), true
	case Float4:
		return float64(d.f), true
	}
	return 0, false
}

// bothInt reports whether both operands are Int8, in which case
// arithmetic stays integral per spec 4.1.
func bothInt(a, b Datum) bool {
	return a.kind == Int8 && b.kind == Int8
}

// -----------------------------------------------------------------------------
// Serialization (value encoding, spec 3)
// -----------------------------------------------------------------------------

// Serialize writes d as: one is_null byte, then (if not null) a
// fixed-width payload for numeric/bool/timestamp, or a 4-byte
// big-endian length prefix plus raw bytes for text/bytea.
func (d Datum) Serialize() []byte {
	if d.kind == Null {
		return []byte{1}
	}
	var buf []byte
	buf = append(buf, 0)
	switch d.kind {
	case Int8, Timestamp:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(d.i))
		buf = append(buf, tmp[:]...)
	case Float4:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], math.Float32bits(d.f))
		buf = append(buf, tmp[:]...)
	case Bool:
		if d.bl {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case Text:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(len(d.s)))
		buf = append(buf, tmp[:]...)
		buf = append(buf, d.s...)
	case Bytea:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(len(d.b)))
		buf = append(buf, tmp[:]...)
		buf = append(buf, d.b...)
	}
	return buf
}

// Deserialize reads one Datum of the expected kind from buf starting at
// offset, returning the value and the offset just past it.
func Deserialize(buf []byte, offset int, kind Kind) (Datum, int, error) {
	if offset >= len(buf) {
		return Datum{}, offset, fmt.Errorf("datum: offset %d out of range (len %d)", offset, len(buf))
	}
	isNull := buf[offset] != 0
	offset++
	if isNull {
		return NewNull(), offset, nil
	}
	switch kind {
	case Int8, Timestamp:
		if offset+8 > len(buf) {
			return Datum{}, offset, fmt.Errorf("datum: truncated int8/timestamp")
		}
		v := int64(binary.BigEndian.Uint64(buf[offset : offset+8]))
		offset += 8
		if kind == Timestamp {
			return NewTimestamp(v), offset, nil
		}
		return NewInt8(v), offset, nil
	case Float4:
		if offset+4 > len(buf) {
			return Datum{}, offset, fmt.Errorf("datum: truncated float4")
		}
		v := math.Float32frombits(binary.BigEndian.Uint32(buf[offset : offset+4]))
		offset += 4
		return NewFloat4(v), offset, nil
	case Bool:
		if offset+1 > len(buf) {
			return Datum{}, offset, fmt.Errorf("datum: truncated bool")
		}
		v := buf[offset] != 0
		offset++
		return NewBool(v), offset, nil
	case Text:
		if offset+4 > len(buf) {
			return Datum{}, offset, fmt.Errorf("datum: truncated text length")
		}
		n := int(binary.BigEndian.Uint32(buf[offset : offset+4]))
		offset += 4
		if offset+n > len(buf) {
			return Datum{}, offset, fmt.Errorf("datum: truncated text body")
		}
		v := string(buf[offset : offset+n])
		offset += n
		return NewText(v), offset, nil
	case Bytea:
		if offset+4 > len(buf) {
			return Datum{}, offset, fmt.Errorf("datum: truncated bytea length")
		}
		n := int(binary.BigEndian.Uint32(buf[offset : offset+4]))
		offset += 4
		if offset+n > len(buf) {
			return Datum{}, offset, fmt.Errorf("datum: truncated bytea body")
		}
		v := append([]byte(nil), buf[offset:offset+n]...)
		offset += n
		return NewBytea(v), offset, nil
	}
	return Datum{}, offset, fmt.Errorf("datum: unsupported kind %s", kind)
}

// -----------------------------------------------------------------------------
// Order-preserving key encoding (spec 4.4, 9 Open Questions #3)
// -----------------------------------------------------------------------------

// EncodeKeyPart appends d's order-preserving byte encoding to buf. It
// omits the is_null byte: index keys encode nullability via the
// _rowid extension described in spec 4.4, not via a null marker.
// Integers and timestamps are encoded big-endian with the sign bit
// flipped so two's-complement ordering matches byte-lexicographic
// ordering; floats use the standard IEEE-754 order-preserving
// transform (flip the sign bit for non-negative values, flip every bit
// for negative ones). Text and Bytea are written as a 4-byte big-endian
// length followed by the bytes, so they order by length first.
func EncodeKeyPart(buf []byte, d Datum) []byte {
	switch d.kind {
	case Int8, Timestamp:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(d.i)^0x8000000000000000)
		return append(buf, tmp[:]...)
	case Float4:
		bits := math.Float32bits(d.f)
		if bits&0x80000000 != 0 {
			bits = ^bits
		} else {
			bits |= 0x80000000
		}
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], bits)
		return append(buf, tmp[:]...)
	case Bool:
		if d.bl {
			return append(buf, 1)
		}
		return append(buf, 0)
	case Text:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(len(d.s)))
		buf = append(buf, tmp[:]...)
		return append(buf, d.s...)
	case Bytea:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(len(d.b)))
		buf = append(buf, tmp[:]...)
		return append(buf, d.b...)
	case Null:
		return buf
	}
	return buf
}

// -----------------------------------------------------------------------------
// Arithmetic (spec 4.1)
// -----------------------------------------------------------------------------

func (d Datum) Add(o Datum) (Datum, error) { return arith(d, o, '+') }
func (d Datum) Sub(o Datum) (Datum, error) { return arith(d, o, '-') }
func (d Datum) Mul(o Datum) (Datum, error) { return arith(d, o, '*') }
func (d Datum) Div(o Datum) (Datum, error) { return arith(d, o, '/') }

func arith(a, b Datum, op byte) (Datum, error) {
	if bothInt(a, b) {
		switch op {
		case '+':
			return NewInt8(a.i + b.i), nil
		case '-':
			return NewInt8(a.i - b.i), nil
		case '*':
			return NewInt8(a.i * b.i), nil
		case '/':
			if b.i == 0 {
				return Datum{}, fmt.Errorf("division by zero")
			}
			return NewInt8(a.i / b.i), nil
		}
	}
	fa, ok1 := a.numeric()
	fb, ok2 := b.numeric()
	if !ok1 || !ok2 {
		return Datum{}, fmt.Errorf("arithmetic requires numeric operands, got %s and %s", a.kind, b.kind)
	}
	switch op {
	case '+':
		return NewFloat4(float32(fa + fb)), nil
	case '-':
		return NewFloat4(float32(fa - fb)), nil
	case '*':
		return NewFloat4(float32(fa * fb)), nil
	case '/':
		if fb == 0 {
			return Datum{}, fmt.Errorf("division by zero")
		}
		return NewFloat4(float32(fa / fb)), nil
	}
	return Datum{}, fmt.Errorf("unknown operator")
}

// -----------------------------------------------------------------------------
// Comparison (spec 4.1)
// -----------------------------------------------------------------------------

// Compare returns -1/0/1 for a<b, a==b, a>b. Both operands must be
// non-null and of comparable kinds (numeric-numeric or same kind);
// three-valued NULL handling is the executor's responsibility, per
// spec 4.1 ("short-circuited before operator dispatch").
func Compare(a, b Datum) (int, error) {
	if a.kind == Text && b.kind == Text {
		switch {
		case a.s < b.s:
			return -1, nil
		case a.s > b.s:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.kind == Bytea && b.kind == Bytea {
		switch {
		case string(a.b) < string(b.b):
			return -1, nil
		case string(a.b) > string(b.b):
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.kind == Bool && b.kind == Bool {
		if a.bl == b.bl {
			return 0, nil
		}
		if !a.bl && b.bl {
			return -1, nil
		}
		return 1, nil
	}
	if a.kind == Timestamp && b.kind == Timestamp {
		switch {
		case a.i < b.i:
			return -1, nil
		case a.i > b.i:
			return 1, nil
		default:
			return 0, nil
		}
	}
	fa, ok1 := a.numeric()
	fb, ok2 := b.numeric()
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("cannot compare %s and %s", a.kind, b.kind)
	}
	switch {
	case fa < fb:
		return -1, nil
	case fa > fb:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal reports bytewise/value equality, used by DISTINCT.
func Equal(a, b Datum) bool {
	if a.kind != b.kind {
		return false
	}
	cmp, err := Compare(a, b)
	return err == nil && cmp == 0
}

// -----------------------------------------------------------------------------
// Logical (spec 4.1)
// -----------------------------------------------------------------------------

func And(a, b Datum) (Datum, error) {
	if a.kind != Bool || b.kind != Bool {
		return Datum{}, fmt.Errorf("AND requires boolean operands")
	}
	return NewBool(a.bl && b.bl), nil
}

func Or(a, b Datum) (Datum, error) {
	if a.kind != Bool || b.kind != Bool {
		return Datum{}, fmt.Errorf("OR requires boolean operands")
	}
	return NewBool(a.bl || b.bl), nil
}

func Not(a Datum) (Datum, error) {
	if a.kind != Bool {
		return Datum{}, fmt.Errorf("NOT requires a boolean operand")
	}
	return NewBool(!a.bl), nil
}

// -----------------------------------------------------------------------------
// Cast (spec 4.1)
// -----------------------------------------------------------------------------

const timestampLayout = "2006-01-02 15:04:05"

// Cast converts d to target per the table in spec 4.1, returning an
// error for any unlisted (from, to) pair.
func Cast(d Datum, target Kind) (Datum, error) {
	if d.kind == Null {
		return NewNull(), nil
	}
	switch d.kind {
	case Int8:
		switch target {
		case Int8:
			return d, nil
		case Float4:
			return NewFloat4(float32(d.i)), nil
		case Text:
			return NewText(fmt.Sprintf("%d", d.i)), nil
		case Bool:
			return NewBool(d.i != 0), nil
		}
	case Float4:
		switch target {
		case Int8:
			return NewInt8(int64(d.f)), nil
		case Float4:
			return d, nil
		case Text:
			return NewText(fmt.Sprintf("%g", d.f)), nil
		}
	case Text:
		switch target {
		case Text:
			return d, nil
		case Timestamp:
			t, err := time.Parse(timestampLayout, d.s)
			if err != nil {
				return Datum{}, fmt.Errorf("invalid timestamp literal %q: %w", d.s, err)
			}
			return NewTimestamp(t.Unix()), nil
		}
	case Bool:
		switch target {
		case Int8:
			if d.bl {
				return NewInt8(1), nil
			}
			return NewInt8(0), nil
		case Bool:
			return d, nil
		}
	case Timestamp:
		switch target {
		case Timestamp:
			return d, nil
		}
	case Bytea:
		switch target {
		case Bytea:
			return d, nil
		}
	}
	return Datum{}, fmt.Errorf("invalid cast from %s to %s", d.kind, target)
}

// String renders d for diagnostics (error messages, DESCRIBE output).
func (d Datum) String() string {
	switch d.kind {
	case Null:
		return "NULL"
	case Int8:
		return fmt.Sprintf("%d", d.i)
	case Float4:
		return fmt.Sprintf("%g", d.f)
	case Text:
		return d.s
	case Bool:
		if d.bl {
			return "true"
		}
		return "false"
	case Bytea:
		return fmt.Sprintf("\\x%x", d.b)
	case Timestamp:
		return time.Unix(d.i, 0).UTC().Format(timestampLayout)
	}
	return "?"
}
