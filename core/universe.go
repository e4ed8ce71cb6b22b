package core

import (
	"algoexec/config"
	"algoexec/pkg/exchange"
	"algoexec/pkg/host"
	"algoexec/pkg/store"
)

var Exchanges map[string]exchange.Exchange
var Store store.Store
var Host *host.Host

func init() {
	Exchanges = make(map[string]exchange.Exchange)
}

func RegisterExchange(exchgId string, exchgConfig *config.ExchangeConfig) error {
	exchange, err := exchange.NewExchange(exchgId, exchgConfig)
	if err != nil {
		return err
	}
	Exchanges[exchgId] = exchange
	return nil
}
