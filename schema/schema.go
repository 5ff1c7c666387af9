// Package schema implements WeaselDB's persistent table metadata:
// attributes, attribute sets, schemas and index definitions, per spec 3.
package schema

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/tbui468/weaseldb/datum"
)

// Attribute is a named typed column within a row shape. Attributes are
// never mutated after schema creation except via DDL.
type Attribute struct {
	Relation string // alias or table name
	Column   string
	Type     datum.Kind
	NotNull  bool
}

// AttributeSet is an ordered list of attributes describing a row shape.
type AttributeSet []Attribute

// Resolve finds the unique attribute named column, regardless of
// relation. Returns an error if no attribute matches or more than one
// does (ambiguous unqualified reference).
func (as AttributeSet) Resolve(column string) (int, error) {
	pos := -1
	for i, a := range as {
		if a.Column == column {
			if pos != -1 {
				return 0, fmt.Errorf("ambiguous column reference %q", column)
			}
			pos = i
		}
	}
	if pos == -1 {
		return 0, fmt.Errorf("no such column %q", column)
	}
	return pos, nil
}

// Find returns the position of the qualified (relation, column) pair.
func (as AttributeSet) Find(relation, column string) (int, error) {
	for i, a := range as {
		if a.Relation == relation && a.Column == column {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no such column %q.%q", relation, column)
}

// Relations returns the distinct relation names present in as.
func (as AttributeSet) Relations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range as {
		if !seen[a.Relation] {
			seen[a.Relation] = true
			out = append(out, a.Relation)
		}
	}
	return out
}

// Concat composes two attribute sets left-then-right, as a join does.
// It rejects a composition whose relation references overlap, since
// that would make qualified column resolution ambiguous.
func Concat(left, right AttributeSet) (AttributeSet, error) {
	leftRels := make(map[string]bool)
	for _, r := range left.Relations() {
		leftRels[r] = true
	}
	for _, r := range right.Relations() {
		if leftRels[r] {
			return nil, fmt.Errorf("relation %q appears more than once in scope", r)
		}
	}
	out := make(AttributeSet, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out, nil
}

// Index is either the primary index (its Columns form the row key, value
// is the serialized row) or a secondary index (value is the primary key).
type Index struct {
	Name          string // storage name, tablename_col1_col2...
	Columns       []int  // positions into the schema's attribute list
	NullsDistinct bool   // UNIQUE ... NULLS DISTINCT (default): NULLs never collide
}

// IndexName derives a column-family name from a table and the
// attribute names of the indexed columns.
func IndexName(table string, cols []string) string {
	return table + "_" + strings.Join(cols, "_")
}

// Schema is a table's persistent metadata: name, the monotonically
// increasing rowid counter, the attribute list (with an auto-prepended
// _rowid attribute at position 0), and the ordered index list — index 0
// is always the primary.
type Schema struct {
	Table        string
	RowidCounter int64
	Attributes   AttributeSet
	Indexes      []Index
}

// RowidAttrPos is the fixed position of the auto-prepended _rowid
// column in every schema's attribute list.
const RowidAttrPos = 0

// Primary returns the schema's primary index (always index 0).
func (s *Schema) Primary() Index { return s.Indexes[0] }

// Secondary returns the schema's secondary indexes.
func (s *Schema) Secondary() []Index { return s.Indexes[1:] }

// ColumnNames returns the attribute names at the given positions.
func (as AttributeSet) ColumnNames(positions []int) []string {
	names := make([]string, len(positions))
	for i, p := range positions {
		names[i] = as[p].Column
	}
	return names
}

// -----------------------------------------------------------------------------
// Catalog serialization
// -----------------------------------------------------------------------------

func putString(buf []byte, s string) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(s)))
	buf = append(buf, tmp[:]...)
	return append(buf, s...)
}

func getString(buf []byte, off int) (string, int, error) {
	if off+4 > len(buf) {
		return "", off, fmt.Errorf("schema: truncated string length")
	}
	n := int(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	if off+n > len(buf) {
		return "", off, fmt.Errorf("schema: truncated string body")
	}
	return string(buf[off : off+n]), off + n, nil
}

// Serialize encodes the schema for storage in the __catalog__ column
// family, keyed by table name.
func (s *Schema) Serialize() []byte {
	var buf []byte
	buf = putString(buf, s.Table)

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(s.RowidCounter))
	buf = append(buf, counter[:]...)

	var nAttrs [4]byte
	binary.BigEndian.PutUint32(nAttrs[:], uint32(len(s.Attributes)))
	buf = append(buf, nAttrs[:]...)
	for _, a := range s.Attributes {
		buf = putString(buf, a.Relation)
		buf = putString(buf, a.Column)
		buf = append(buf, byte(a.Type))
		if a.NotNull {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	var nIdx [4]byte
	binary.BigEndian.PutUint32(nIdx[:], uint32(len(s.Indexes)))
	buf = append(buf, nIdx[:]...)
	for _, idx := range s.Indexes {
		buf = putString(buf, idx.Name)
		var nCols [4]byte
		binary.BigEndian.PutUint32(nCols[:], uint32(len(idx.Columns)))
		buf = append(buf, nCols[:]...)
		for _, c := range idx.Columns {
			var cb [4]byte
			binary.BigEndian.PutUint32(cb[:], uint32(c))
			buf = append(buf, cb[:]...)
		}
		if idx.NullsDistinct {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	return buf
}

// Deserialize decodes a schema previously written by Serialize.
func Deserialize(buf []byte) (*Schema, error) {
	off := 0
	table, off, err := getString(buf, off)
	if err != nil {
		return nil, err
	}
	if off+8 > len(buf) {
		return nil, fmt.Errorf("schema: truncated rowid counter")
	}
	counter := int64(binary.BigEndian.Uint64(buf[off : off+8]))
	off += 8

	if off+4 > len(buf) {
		return nil, fmt.Errorf("schema: truncated attribute count")
	}
	nAttrs := int(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	attrs := make(AttributeSet, nAttrs)
	for i := 0; i < nAttrs; i++ {
		var rel, col string
		rel, off, err = getString(buf, off)
		if err != nil {
			return nil, err
		}
		col, off, err = getString(buf, off)
		if err != nil {
			return nil, err
		}
		if off+2 > len(buf) {
			return nil, fmt.Errorf("schema: truncated attribute flags")
		}
		typ := datum.Kind(buf[off])
		off++
		notNull := buf[off] != 0
		off++
		attrs[i] = Attribute{Relation: rel, Column: col, Type: typ, NotNull: notNull}
	}

	if off+4 > len(buf) {
		return nil, fmt.Errorf("schema: truncated index count")
	}
	nIdx := int(binary.BigEndian.Uint32(buf[off : off+4]))
	off += 4
	indexes := make([]Index, nIdx)
	for i := 0; i < nIdx; i++ {
		var name string
		name, off, err = getString(buf, off)
		if err != nil {
			return nil, err
		}
		if off+4 > len(buf) {
			return nil, fmt.Errorf("schema: truncated index column count")
		}
		nCols := int(binary.BigEndian.Uint32(buf[off : off+4]))
		off += 4
		cols := make([]int, nCols)
		for j := 0; j < nCols; j++ {
			if off+4 > len(buf) {
				return nil, fmt.Errorf("schema: truncated index column")
			}
			cols[j] = int(binary.BigEndian.Uint32(buf[off : off+4]))
			off += 4
		}
		if off+1 > len(buf) {
			return nil, fmt.Errorf("schema: truncated index nulls-distinct flag")
		}
		nullsDistinct := buf[off] != 0
		off++
		indexes[i] = Index{Name: name, Columns: cols, NullsDistinct: nullsDistinct}
	}

	return &Schema{Table: table, RowidCounter: counter, Attributes: attrs, Indexes: indexes}, nil
}
