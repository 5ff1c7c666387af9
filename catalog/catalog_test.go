package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/kv/memengine"
	"github.com/tbui468/weaseldb/schema"
)

func TestSchemaRoundTripThroughCatalog(t *testing.T) {
	e := memengine.New()
	require.NoError(t, EnsureColumnFamilies(e))

	txn, err := e.Begin()
	require.NoError(t, err)

	s := &schema.Schema{
		Table:        "widgets",
		RowidCounter: 3,
		Attributes: schema.AttributeSet{
			{Relation: "widgets", Column: "_rowid", Type: datum.Int8, NotNull: true},
		},
		Indexes: []schema.Index{{Name: "widgets__rowid", Columns: []int{0}}},
	}
	require.NoError(t, PutSchema(txn, s))

	got, ok, err := GetSchema(txn, "widgets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.Table, got.Table)
	assert.Equal(t, s.RowidCounter, got.RowidCounter)

	require.NoError(t, DeleteSchema(txn, "widgets"))
	_, ok, err = GetSchema(txn, "widgets")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModelRoundTripThroughCatalog(t *testing.T) {
	e := memengine.New()
	require.NoError(t, EnsureColumnFamilies(e))

	txn, err := e.Begin()
	require.NoError(t, err)

	artifact := []byte{1, 2, 3, 4}
	require.NoError(t, PutModel(txn, "m1", artifact))

	got, ok, err := GetModel(txn, "m1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, artifact, got)

	require.NoError(t, DeleteModel(txn, "m1"))
	_, ok, err = GetModel(txn, "m1")
	require.NoError(t, err)
	assert.False(t, ok)
}
