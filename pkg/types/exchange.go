package types

type ExchangeName string

const (
	ExchangeDummy = ExchangeName("dummy") // paper exchange, fills against the local trade feed
	ExchangeBnf   = ExchangeName("bnf")
)
