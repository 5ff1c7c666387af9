package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/schema"
)

func widgetSchema() *schema.Schema {
	return &schema.Schema{
		Table:        "widgets",
		RowidCounter: 0,
		Attributes: schema.AttributeSet{
			{Relation: "widgets", Column: "_rowid", Type: datum.Int8, NotNull: true},
			{Relation: "widgets", Column: "name", Type: datum.Text, NotNull: true},
			{Relation: "widgets", Column: "price", Type: datum.Float4},
		},
		Indexes: []schema.Index{
			{Name: "widgets__rowid", Columns: []int{0}},
			{Name: "widgets_name", Columns: []int{1}},
		},
	}
}

func TestRowSerializeRoundTrip(t *testing.T) {
	s := widgetSchema()
	row := []datum.Datum{datum.NewInt8(1), datum.NewText("gadget"), datum.NewNull()}
	buf := SerializeRow(row)
	got, err := DeserializeRow(s, buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].AsInt8())
	assert.Equal(t, "gadget", got[1].AsText())
	assert.True(t, got[2].IsNull())
}

func TestPrimaryKeyOrdering(t *testing.T) {
	s := widgetSchema()
	rowA := []datum.Datum{datum.NewInt8(1), datum.NewText("a"), datum.NewNull()}
	rowB := []datum.Datum{datum.NewInt8(2), datum.NewText("b"), datum.NewNull()}
	keyA := PrimaryKey(s, rowA)
	keyB := PrimaryKey(s, rowB)
	assert.True(t, string(keyA) < string(keyB))
}

func TestSecondaryKeyUsesOwnColumns(t *testing.T) {
	s := widgetSchema()
	row := []datum.Datum{datum.NewInt8(1), datum.NewText("gadget"), datum.NewNull()}
	key := SecondaryKey(s.Secondary()[0], row)
	assert.Equal(t, EncodeKey(row, []int{1}), key)
}

func TestSecondaryKeyAppendsRowidForNullsDistinct(t *testing.T) {
	idx := schema.Index{Name: "widgets_price", Columns: []int{2}, NullsDistinct: true}
	rowA := []datum.Datum{datum.NewInt8(1), datum.NewText("a"), datum.NewNull()}
	rowB := []datum.Datum{datum.NewInt8(2), datum.NewText("b"), datum.NewNull()}
	keyA := SecondaryKey(idx, rowA)
	keyB := SecondaryKey(idx, rowB)
	assert.NotEqual(t, keyA, keyB, "distinct NULLs must not collide on the same key")
	assert.Equal(t, EncodeKey(rowA, []int{2, schema.RowidAttrPos}), keyA)
}

func TestSecondaryKeyNullsNotDistinctCollide(t *testing.T) {
	idx := schema.Index{Name: "widgets_price", Columns: []int{2}, NullsDistinct: false}
	rowA := []datum.Datum{datum.NewInt8(1), datum.NewText("a"), datum.NewNull()}
	rowB := []datum.Datum{datum.NewInt8(2), datum.NewText("b"), datum.NewNull()}
	assert.Equal(t, SecondaryKey(idx, rowA), SecondaryKey(idx, rowB))
}

func TestSecondaryKeyNonNullIgnoresNullsDistinct(t *testing.T) {
	idx := schema.Index{Name: "widgets_name", Columns: []int{1}, NullsDistinct: true}
	row := []datum.Datum{datum.NewInt8(1), datum.NewText("gadget"), datum.NewNull()}
	assert.Equal(t, EncodeKey(row, []int{1}), SecondaryKey(idx, row))
}
