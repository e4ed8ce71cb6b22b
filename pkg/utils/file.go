package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadExchangeSymbolMap reads pkg/exchange/<exchange>/config/symbol.json, which maps universal
// symbols (BTC_USD) to venue symbols (BTCUSDT), and returns both directions.
func LoadExchangeSymbolMap(exchange string) (u2l map[string]string, l2u map[string]string, err error) {
	bytes, err := os.ReadFile(filepath.Join("pkg", "exchange", exchange, "config", "symbol.json"))
	if err != nil {
		return nil, nil, fmt.Errorf("fail to read symbol map file: %w", err)
	}
	if err := json.Unmarshal(bytes, &u2l); err != nil {
		return nil, nil, fmt.Errorf("fail to unmarshal symbol map: %w", err)
	}
	return u2l, ReverseStrMap(u2l), nil
}

func ReverseStrMap(originalMap map[string]string) map[string]string {
	reversedMap := make(map[string]string)
	for key, value := range originalMap {
		reversedMap[value] = key
	}
	return reversedMap
}
