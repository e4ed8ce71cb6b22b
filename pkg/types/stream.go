package types

type Stream string

const (
	StreamTrade     = Stream("Trade")
	StreamKLine     = Stream("KLine")
	StreamBookDepth = Stream("BookDepth")
	StreamOrder     = Stream("Order")
)
