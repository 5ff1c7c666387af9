package datum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		d    Datum
		kind Kind
	}{
		{"int8", NewInt8(-42), Int8},
		{"float4", NewFloat4(3.5), Float4},
		{"text", NewText("hello"), Text},
		{"bool", NewBool(true), Bool},
		{"bytea", NewBytea([]byte{0xde, 0xad}), Bytea},
		{"timestamp", NewTimestamp(1700000000), Timestamp},
		{"null", NewNull(), Int8},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			buf := c.d.Serialize()
			got, offset, err := Deserialize(buf, 0, c.kind)
			require.NoError(t, err)
			assert.Equal(t, len(buf), offset)
			assert.True(t, Equal(c.d, got) || c.d.IsNull() && got.IsNull())
		})
	}
}

func TestEncodeKeyPartOrdering(t *testing.T) {
	values := []Datum{NewInt8(-100), NewInt8(-1), NewInt8(0), NewInt8(1), NewInt8(100)}
	var encoded [][]byte
	for _, v := range values {
		encoded = append(encoded, EncodeKeyPart(nil, v))
	}
	for i := 1; i < len(encoded); i++ {
		assert.True(t, string(encoded[i-1]) < string(encoded[i]),
			"encoding of %v should sort before %v", values[i-1], values[i])
	}
}

func TestEncodeKeyPartFloatOrdering(t *testing.T) {
	values := []Datum{NewFloat4(-5.5), NewFloat4(-0.1), NewFloat4(0), NewFloat4(0.1), NewFloat4(5.5)}
	var encoded [][]byte
	for _, v := range values {
		encoded = append(encoded, EncodeKeyPart(nil, v))
	}
	for i := 1; i < len(encoded); i++ {
		assert.True(t, string(encoded[i-1]) < string(encoded[i]))
	}
}

func TestArithmeticWidening(t *testing.T) {
	sum, err := NewInt8(2).Add(NewInt8(3))
	require.NoError(t, err)
	assert.Equal(t, Int8, sum.Kind())
	assert.Equal(t, int64(5), sum.AsInt8())

	mixed, err := NewInt8(2).Add(NewFloat4(1.5))
	require.NoError(t, err)
	assert.Equal(t, Float4, mixed.Kind())
	assert.InDelta(t, 3.5, float64(mixed.AsFloat4()), 0.0001)

	_, err = NewInt8(1).Div(NewInt8(0))
	assert.Error(t, err)
}

func TestCastTable(t *testing.T) {
	v, err := Cast(NewInt8(7), Text)
	require.NoError(t, err)
	assert.Equal(t, "7", v.AsText())

	v, err = Cast(NewText("2024-01-02 03:04:05"), Timestamp)
	require.NoError(t, err)
	assert.Equal(t, Timestamp, v.Kind())

	_, err = Cast(NewText("x"), Int8)
	assert.Error(t, err)

	_, err = Cast(NewBool(true), Timestamp)
	assert.Error(t, err)
}

func TestThreeValuedLogicBuildingBlocks(t *testing.T) {
	_, err := And(NewBool(true), NewInt8(1))
	assert.Error(t, err, "AND requires boolean operands; NULL short-circuiting is the executor's job")

	r, err := Or(NewBool(false), NewBool(true))
	require.NoError(t, err)
	assert.True(t, r.AsBool())
}
