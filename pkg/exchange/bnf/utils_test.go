package bnf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarketFilter(t *testing.T) {
	f, err := parseMarketFilter("BTCUSDT", []map[string]interface{}{
		{"filterType": "PRICE_FILTER", "tickSize": "0.10", "minPrice": "556.80"},
		{"filterType": "LOT_SIZE", "stepSize": "0.001", "minQty": "0.001", "maxQty": "1000"},
		{"filterType": "MARKET_LOT_SIZE", "stepSize": "0.001", "minQty": "0.001", "maxQty": "120"},
		{"filterType": "MIN_NOTIONAL", "notional": "100"},
		{"filterType": "PERCENT_PRICE", "multiplierUp": "1.05"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, f.tickSize)
	assert.Equal(t, 0.001, f.lotStepSize)
	assert.Equal(t, 1000.0, f.lotMaxQty)
	assert.Equal(t, 120.0, f.marketLotMaxQty)
	assert.Equal(t, 100.0, f.minNotional)

	_, err = parseMarketFilter("BTCUSDT", []map[string]interface{}{
		{"filterType": "LOT_SIZE", "stepSize": 0.001},
	})
	assert.Error(t, err)
}
