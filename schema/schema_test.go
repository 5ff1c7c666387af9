package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/datum"
)

func sampleSchema() *Schema {
	return &Schema{
		Table:        "widgets",
		RowidCounter: 7,
		Attributes: AttributeSet{
			{Relation: "widgets", Column: "_rowid", Type: datum.Int8, NotNull: true},
			{Relation: "widgets", Column: "name", Type: datum.Text, NotNull: true},
			{Relation: "widgets", Column: "price", Type: datum.Float4},
		},
		Indexes: []Index{
			{Name: "widgets__rowid", Columns: []int{0}},
			{Name: "widgets_name", Columns: []int{1}},
		},
	}
}

func TestSchemaSerializeRoundTrip(t *testing.T) {
	s := sampleSchema()
	buf := s.Serialize()
	got, err := Deserialize(buf)
	require.NoError(t, err)

	assert.Equal(t, s.Table, got.Table)
	assert.Equal(t, s.RowidCounter, got.RowidCounter)
	assert.Equal(t, s.Attributes, got.Attributes)
	assert.Equal(t, s.Indexes, got.Indexes)
}

func TestAttributeSetResolve(t *testing.T) {
	as := sampleSchema().Attributes
	pos, err := as.Resolve("name")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	_, err = as.Resolve("nonexistent")
	assert.Error(t, err)
}

func TestAttributeSetFind(t *testing.T) {
	as := sampleSchema().Attributes
	pos, err := as.Find("widgets", "price")
	require.NoError(t, err)
	assert.Equal(t, 2, pos)

	_, err = as.Find("other", "price")
	assert.Error(t, err)
}

func TestConcatRejectsOverlappingRelations(t *testing.T) {
	left := AttributeSet{{Relation: "t", Column: "a", Type: datum.Int8}}
	right := AttributeSet{{Relation: "t", Column: "b", Type: datum.Int8}}
	_, err := Concat(left, right)
	assert.Error(t, err, "duplicate relation reference in scope must be rejected")

	right2 := AttributeSet{{Relation: "u", Column: "b", Type: datum.Int8}}
	combined, err := Concat(left, right2)
	require.NoError(t, err)
	assert.Len(t, combined, 2)
}

func TestPrimaryAndSecondary(t *testing.T) {
	s := sampleSchema()
	assert.Equal(t, "widgets__rowid", s.Primary().Name)
	assert.Len(t, s.Secondary(), 1)
	assert.Equal(t, "widgets_name", s.Secondary()[0].Name)
}
