package bnf

type bnfConfig struct {
	WsUrl               string `json:"wsUrl"`
	RecvWindowMs        int64  `json:"recvWindowMs"`
	ListenKeyKeepaliveS int64  `json:"listenKeyKeepaliveS"`
}

type bnfMarketFilter struct {
	symbol            string
	tickSize          float64
	minNotional       float64
	lotMinQty         float64
	lotMaxQty         float64
	lotStepSize       float64
	marketLotMinQty   float64
	marketLotMaxQty   float64
	marketLotStepSize float64
}

// ╔══════════════╗
//     Ws Event
// ╚══════════════╝

type wsDepthEvent struct {
	Event           string     `json:"e"`
	Time            int64      `json:"E"`
	TransactionTime int64      `json:"T"`
	Symbol          string     `json:"s"`
	LastUpdateID    int64      `json:"u"`
	Bids            [][]string `json:"b"`
	Asks            [][]string `json:"a"`
}

type wsEventHeader struct {
	Event string `json:"e"`
}
