package memengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetCommitVisibility(t *testing.T) {
	e := New()
	require.NoError(t, e.CreateColumnFamily("cf"))

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put("cf", []byte("k"), []byte("v1")))

	v, ok, err := txn.Get("cf", []byte("k"))
	require.NoError(t, err)
	require.True(t, ok, "a transaction must see its own uncommitted writes")
	assert.Equal(t, "v1", string(v))

	require.NoError(t, txn.Commit())

	txn2, err := e.Begin()
	require.NoError(t, err)
	v, ok, err = txn2.Get("cf", []byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	e := New()
	require.NoError(t, e.CreateColumnFamily("cf"))

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put("cf", []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())

	txn2, err := e.Begin()
	require.NoError(t, err)
	_, ok, err := txn2.Get("cf", []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIteratorOrdersKeysAndMergesPendingWrites(t *testing.T) {
	e := New()
	require.NoError(t, e.CreateColumnFamily("cf"))

	seed, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, seed.Put("cf", []byte("b"), []byte("2")))
	require.NoError(t, seed.Put("cf", []byte("d"), []byte("4")))
	require.NoError(t, seed.Commit())

	txn, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, txn.Put("cf", []byte("a"), []byte("1")))
	require.NoError(t, txn.Delete("cf", []byte("d")))

	it, err := txn.NewIterator("cf")
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"a", "b"}, keys, "pending put of 'a' and pending delete of 'd' must both be reflected")
}

func TestGetOnUnknownColumnFamilyErrors(t *testing.T) {
	e := New()
	txn, err := e.Begin()
	require.NoError(t, err)
	_, _, err = txn.Get("nope", []byte("k"))
	assert.Error(t, err)
}
