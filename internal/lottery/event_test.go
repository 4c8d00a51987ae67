package lottery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRevealEvent(t *testing.T) {
	ev := RevealEvent{
		DrawDate: "01-01-2025",
		Field:    "firstPrize_0",
		Value:    "12345",
		Metadata: Metadata{RegionName: "Miền Bắc", RegionCode: "MB", Year: 2025, Month: 1},
	}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	decoded, err := DecodeRevealEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)
}

func TestDecodeRevealEventRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      "{",
		"unknown field": `{"drawDate":"01-01-2025","field":"bogus","value":"1"}`,
		"missing date":  `{"field":"firstPrize_0","value":"1"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRevealEvent([]byte(payload))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestClientPayload(t *testing.T) {
	ev := RevealEvent{
		DrawDate: "01-01-2025",
		Field:    "maDB",
		Value:    "1KZ-6KZ-14KZ",
		Metadata: Metadata{RegionName: "Miền Bắc", RegionCode: "MB", Year: 2025, Month: 1},
	}

	raw, err := ev.ClientPayload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"maDB":"1KZ-6KZ-14KZ","drawDate":"01-01-2025","tentinh":"Miền Bắc","tinh":"MB","year":2025,"month":1}`, string(raw))
}
