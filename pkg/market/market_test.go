package market

import (
	"algoexec/pkg/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundQty(t *testing.T) {
	m := New(types.ExchangeBnf, 0, "BTCUSDT")
	m.LotStepSize = 0.001
	m.MarketLotStepSize = 0.01

	assert.Equal(t, 0.123, m.RoundQty(0.12345, types.OrderLimit))
	assert.Equal(t, 0.12, m.RoundQty(0.12345, types.OrderMarket))

	m.LotStepSize = 0
	assert.Equal(t, 0.12345, m.RoundQty(0.12345, types.OrderLimit))
}

func TestRoundPrice(t *testing.T) {
	m := New(types.ExchangeBnf, 0, "BTCUSDT")
	assert.Equal(t, 101.234, m.RoundPrice(101.234))

	m.TickSize = 0.1
	assert.Equal(t, 101.2, m.RoundPrice(101.234))
	assert.Equal(t, 101.3, m.RoundPrice(101.26))
}

func TestQtyFilter(t *testing.T) {
	m := New(types.ExchangeBnf, 0, "BTCUSDT")
	m.LotStepSize = 0.001
	m.LotMinQty = 0.002

	step, minQty := m.QtyFilter(types.OrderMarket)
	assert.Equal(t, 0.001, step)
	assert.Equal(t, 0.002, minQty)

	m.MarketLotStepSize = 0.01
	step, _ = m.QtyFilter(types.OrderMarket)
	assert.Equal(t, 0.01, step)
	step, _ = m.QtyFilter(types.OrderLimit)
	assert.Equal(t, 0.001, step)
}

func TestFitsLot(t *testing.T) {
	m := New(types.ExchangeBnf, 0, "BTCUSDT")
	m.LotStepSize = 0.001
	m.LotMinQty = 0.002

	assert.True(t, m.FitsLot(0.3, types.OrderLimit))
	assert.True(t, m.FitsLot(-0.3, types.OrderLimit))
	assert.False(t, m.FitsLot(0.3005, types.OrderLimit))
	assert.False(t, m.FitsLot(0.001, types.OrderLimit))

	m.LotStepSize = 0
	m.LotMinQty = 0
	assert.True(t, m.FitsLot(0.3005, types.OrderLimit))
}
