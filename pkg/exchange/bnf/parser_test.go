package bnf

import (
	"algoexec/pkg/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeEvent(t *testing.T) {
	evt, err := parseTradeEvent([]byte(`{"e":"aggTrade","E":1717243200100,"s":"BTCUSDT","a":5933014,"p":"67000.10","q":"0.012","f":100,"l":105,"T":1717243200000,"m":true}`))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", evt.Symbol)
	assert.Equal(t, 67000.1, evt.Price)
	assert.Equal(t, 0.012, evt.Quantity)
	assert.Equal(t, "sell", evt.Side)
	assert.Equal(t, int64(1717243200000), evt.Time.UnixMilli())
}

func TestParseBookDepthEvent(t *testing.T) {
	evt, err := parseBookDepthEvent([]byte(`{"e":"depthUpdate","E":1717243200100,"T":1717243200090,"s":"ETHUSDT","U":1,"u":2,"pu":0,
		"b":[["3500.10","2.5"],["3500.00","1"]],"a":[["3500.20","0.7"]]}`))
	require.NoError(t, err)
	require.Len(t, evt.Bids, 2)
	require.Len(t, evt.Asks, 1)
	assert.Equal(t, 3500.1, evt.Bids[0].Price)
	assert.Equal(t, 0.7, evt.Asks[0].Qty)

	_, err = parseBookDepthEvent([]byte(`{"b":[["1"]]}`))
	assert.Error(t, err)
}

func TestParseKLineEvent(t *testing.T) {
	evt, final, err := parseKLineEvent(types.Interval5m, []byte(`{"e":"kline","E":1717243200100,"s":"BTCUSDT",
		"k":{"t":1717242900000,"T":1717243199999,"s":"BTCUSDT","i":"5m","o":"1","c":"4","h":"5","l":"0.5","v":"10","x":true}}`))
	require.NoError(t, err)
	assert.True(t, final)
	assert.Equal(t, types.Interval5m, evt.Interval)
	assert.Equal(t, types.KLine{O: 1, H: 5, L: 0.5, C: 4}, evt.Kline)
}
