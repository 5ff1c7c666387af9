// Package index implements composite key construction and the
// key/value layout conventions for WeaselDB's primary and secondary
// indexes, per spec 3 and 4.4.
package index

import (
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/schema"
)

// EncodeKey concatenates the order-preserving encodings of row's
// columns at the given positions, per spec 4.4. For Int8, Timestamp,
// Float4 and Bool columns the byte string's lexicographic ordering
// matches the values' ordering; Text and Bytea parts are
// length-prefixed, so they order by length first, then bytewise.
func EncodeKey(row []datum.Datum, positions []int) []byte {
	var buf []byte
	for _, pos := range positions {
		buf = datum.EncodeKeyPart(buf, row[pos])
	}
	return buf
}

// PrimaryKey returns the primary-index key for row under schema s.
func PrimaryKey(s *schema.Schema, row []datum.Datum) []byte {
	return KeyFor(s.Primary(), row)
}

// SecondaryKey returns idx's key for row.
func SecondaryKey(idx schema.Index, row []datum.Datum) []byte {
	return KeyFor(idx, row)
}

// KeyFor returns idx's encoded key for row, honoring idx.NullsDistinct
// (spec 3/4.3): EncodeKeyPart drops NULLs entirely, so a bare
// single-column UNIQUE index would otherwise encode every null-bearing
// row to the same empty key and reject the second one as a duplicate.
// When idx is NULLS DISTINCT (the default) and row has a NULL in one
// of idx's declared columns, row's _rowid is appended to the key so
// each null-bearing row gets a key of its own.
func KeyFor(idx schema.Index, row []datum.Datum) []byte {
	cols := idx.Columns
	if idx.NullsDistinct {
		for _, pos := range idx.Columns {
			if row[pos].IsNull() {
				cols = append(append([]int{}, idx.Columns...), schema.RowidAttrPos)
				break
			}
		}
	}
	return EncodeKey(row, cols)
}

// SerializeRow encodes a full row as the primary index's value: the
// concatenated datum serializations of every column in schema order.
func SerializeRow(row []datum.Datum) []byte {
	var buf []byte
	for _, d := range row {
		buf = append(buf, d.Serialize()...)
	}
	return buf
}

// DeserializeRow decodes a row previously written by SerializeRow,
// using the declared type of each attribute to know its width.
func DeserializeRow(s *schema.Schema, buf []byte) ([]datum.Datum, error) {
	row := make([]datum.Datum, len(s.Attributes))
	off := 0
	for i, attr := range s.Attributes {
		d, next, err := datum.Deserialize(buf, off, attr.Type)
		if err != nil {
			return nil, err
		}
		row[i] = d
		off = next
	}
	return row, nil
}
