package wire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/datum"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Query, []byte("SELECT 1")))

	msg, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, Query, msg.Type)
	assert.Equal(t, "SELECT 1", string(msg.Payload))
}

func TestReadyForQueryHasEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReadyForQuery(&buf))
	msg, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, ReadyForQuery, msg.Type)
	assert.Empty(t, msg.Payload)
}

func TestRowDescriptionRoundTrip(t *testing.T) {
	cols := []ColumnDesc{
		{Name: "id", TypeTag: byte(datum.Int8)},
		{Name: "name", TypeTag: byte(datum.Text)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRowDescription(&buf, cols))

	msg, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, RowDescription, msg.Type)

	got, err := ReadRowDescription(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, cols, got)
}

func TestDataRowRoundTripWithNull(t *testing.T) {
	kinds := []datum.Kind{datum.Int8, datum.Text}
	values := []datum.Datum{datum.NewInt8(42), datum.NewNull()}

	var buf bytes.Buffer
	require.NoError(t, WriteDataRow(&buf, values))

	msg, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, DataRow, msg.Type)

	got, err := ReadDataRow(msg.Payload, kinds)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(42), got[0].AsInt8())
	assert.True(t, got[1].IsNull())
}

func TestReadMessageTruncatedHeader(t *testing.T) {
	_, err := ReadMessage(bufio.NewReader(bytes.NewReader([]byte{'Q', 0, 0})))
	assert.Error(t, err)
}

func TestMultipleMessagesOnOneStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommandComplete(&buf, "INSERT 1"))
	require.NoError(t, WriteReadyForQuery(&buf))

	r := bufio.NewReader(&buf)
	m1, err := ReadMessage(r)
	require.NoError(t, err)
	assert.Equal(t, CommandComplete, m1.Type)
	assert.Equal(t, "INSERT 1", string(m1.Payload))

	m2, err := ReadMessage(r)
	require.NoError(t, err)
	assert.Equal(t, ReadyForQuery, m2.Type)
}
