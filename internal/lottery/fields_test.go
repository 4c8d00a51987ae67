package lottery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsCanonicalOrder(t *testing.T) {
	fields := Fields()
	require.Len(t, fields, 28)

	assert.Equal(t, "firstPrize_0", fields[0])
	assert.Equal(t, FieldMachineCodes, fields[len(fields)-2])
	assert.Equal(t, FieldSpecialPrize, fields[len(fields)-1])
	assert.Equal(t, "sevenPrizes_3", fields[len(fields)-3])

	seen := make(map[string]bool)
	for i, f := range fields {
		assert.False(t, seen[f], "duplicate field %s", f)
		seen[f] = true
		assert.Equal(t, i, FieldPosition(f))
		assert.True(t, IsField(f))
	}
}

func TestFieldsReturnsCopy(t *testing.T) {
	fields := Fields()
	fields[0] = "mutated"

	assert.Equal(t, "firstPrize_0", Fields()[0])
}

func TestDefaultFields(t *testing.T) {
	defaults := DefaultFields()
	require.Len(t, defaults, len(Fields()))
	for _, f := range Fields() {
		assert.Equal(t, Sentinel, defaults[f])
	}
}

func TestIsField(t *testing.T) {
	assert.False(t, IsField("eightPrizes_0"))
	assert.False(t, IsField(""))
	assert.Equal(t, -1, FieldPosition("nope"))
}

func TestIsRevealed(t *testing.T) {
	assert.True(t, IsRevealed("12345"))
	assert.False(t, IsRevealed(Sentinel))
	assert.False(t, IsRevealed(""))
}

func TestFieldDigits(t *testing.T) {
	assert.Equal(t, 5, FieldDigits("firstPrize_0"))
	assert.Equal(t, 4, FieldDigits("fivePrizes_5"))
	assert.Equal(t, 2, FieldDigits("sevenPrizes_3"))
	assert.Equal(t, 5, FieldDigits(FieldSpecialPrize))
	assert.Zero(t, FieldDigits(FieldMachineCodes))
	assert.Zero(t, FieldDigits("nope"))
}
