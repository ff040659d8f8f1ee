package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOHLCV_DecodesSnakeCasePayload(t *testing.T) {
	payload := `{
		"open": 1.0850, "high": 1.0900, "low": 1.0840, "close": 1.0880,
		"volume": 1200, "timestamp": "2025-03-01T10:00:00Z"
	}`

	var c OHLCV
	require.NoError(t, json.Unmarshal([]byte(payload), &c))

	assert.InDelta(t, 1.0850, c.Open, 1e-9)
	assert.InDelta(t, 1.0900, c.High, 1e-9)
	assert.InDelta(t, 1.0840, c.Low, 1e-9)
	assert.InDelta(t, 1.0880, c.Close, 1e-9)
	assert.InDelta(t, 1200.0, c.Volume, 1e-9)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), c.Timestamp.UTC())
}
