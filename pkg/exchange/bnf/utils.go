package bnf

import (
	"algoexec/pkg/market"
	"algoexec/pkg/types"
	"algoexec/pkg/utils"
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2/futures"
)

func loadMarkets(fClient *futures.Client) (map[string]*market.Market, error) {
	marketFilters, err := getMarketFilters(fClient)
	if err != nil {
		return nil, err
	}
	markets := make(map[string]*market.Market, len(marketFilters))
	for _, f := range marketFilters {
		// market ID does not apply on bnf, default to 0
		m := market.New(types.ExchangeBnf, 0, f.symbol)
		m.TickSize = f.tickSize
		m.MinNotional = f.minNotional
		m.LotMinQty = f.lotMinQty
		m.LotMaxQty = f.lotMaxQty
		m.LotStepSize = f.lotStepSize
		m.MarketLotMinQty = f.marketLotMinQty
		m.MarketLotMaxQty = f.marketLotMaxQty
		m.MarketLotStepSize = f.marketLotStepSize
		m.MaxLeverage = 125
		markets[f.symbol] = m
	}
	return markets, nil
}

func getMarketFilters(fClient *futures.Client) (map[string]bnfMarketFilter, error) {
	exchangeInfo, err := fClient.NewExchangeInfoService().Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("fail to get exchange info: %w", err)
	}

	marketFilters := make(map[string]bnfMarketFilter)
	for _, symbol := range exchangeInfo.Symbols {
		f, err := parseMarketFilter(symbol.Symbol, symbol.Filters)
		if err != nil {
			return nil, fmt.Errorf("fail to parse filters of %s: %w", symbol.Symbol, err)
		}
		marketFilters[symbol.Symbol] = f
	}
	return marketFilters, nil
}

func parseMarketFilter(symbol string, filters []map[string]interface{}) (bnfMarketFilter, error) {
	f := bnfMarketFilter{symbol: symbol}
	for _, filter := range filters {
		var fields map[string]*float64
		switch filter["filterType"] {
		case "PRICE_FILTER":
			fields = map[string]*float64{"tickSize": &f.tickSize}
		case "MIN_NOTIONAL":
			fields = map[string]*float64{"notional": &f.minNotional}
		case "LOT_SIZE":
			fields = map[string]*float64{"stepSize": &f.lotStepSize, "minQty": &f.lotMinQty, "maxQty": &f.lotMaxQty}
		case "MARKET_LOT_SIZE":
			fields = map[string]*float64{"stepSize": &f.marketLotStepSize, "minQty": &f.marketLotMinQty, "maxQty": &f.marketLotMaxQty}
		}
		for key, dst := range fields {
			v, err := extractFilter(filter, key)
			if err != nil {
				return bnfMarketFilter{}, err
			}
			*dst = v
		}
	}
	return f, nil
}

func extractFilter(filter map[string]interface{}, key string) (float64, error) {
	raw, ok := filter[key].(string)
	if !ok {
		return 0, fmt.Errorf("bad string assertion: %s", key)
	}
	return utils.StrToFloat(raw)
}
