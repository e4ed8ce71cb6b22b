package main

import (
	"algoexec/config"
	"algoexec/pkg/algo/params"
	"algoexec/pkg/exchange"
	"algoexec/pkg/exchange/dummy"
	"algoexec/pkg/host"
	"algoexec/pkg/notify"
	"algoexec/pkg/store"
	"algoexec/pkg/types"
	"context"
	"flag"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Runs one accumulate/distribute order against the paper venue with a random-walk
// price feed and prints its progress.
func main() {
	godotenv.Load()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	symbol := flag.String("symbol", "BTCUSDT", "paper symbol")
	amount := flag.Float64("amount", 1, "total amount, negative to sell")
	slice := flag.Float64("slice", 0.1, "slice amount")
	intervalMs := flag.Float64("interval", 500, "slice interval (ms)")
	delta := flag.Float64("delta", 0, "offset from the last trade price")
	verbose := flag.Bool("v", false, "debug logs")
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	exchg, err := dummy.New(&config.ExchangeConfig{
		ExchangeName: types.ExchangeDummy,
		Paper:        &config.PaperConfig{Symbols: []string{*symbol}, TickSize: 0.01, StepSize: 0.0001},
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := host.New(ctx, map[string]exchange.Exchange{"paper": exchg}, store.NewMemoryStore(), notify.New(nil), nil)
	defer h.Shutdown()

	if *amount < 0 && *slice > 0 {
		*slice = -*slice
	}

	zero, yes, no := 0.0, true, false
	distortion := 20.0
	p := params.Params{
		Symbol:             *symbol,
		Amount:             amount,
		SliceAmount:        slice,
		OrderType:          types.AlgoOrderRelative,
		SliceInterval:      intervalMs,
		IntervalDistortion: &distortion,
		AmountDistortion:   &distortion,
		SubmitDelay:        &zero,
		CancelDelay:        &zero,
		CatchUp:            &yes,
		AwaitFill:          &no,
		RelativeOffset:     &params.PriceReference{Type: params.PriceRefLast, Delta: delta},
	}

	state, err := h.Create(ctx, "paper", p, notify.Connection{Id: "paper-cli"})
	if err != nil {
		log.Fatalf("fail to create order: %v", err)
	}
	log.Infof("created %s", state.Gid)

	price := 100.0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		price += rand.NormFloat64() * 0.2
		exchg.PublishTrade(types.TradeEvent{Symbol: *symbol, Price: price, Quantity: 1})

		snap, err := h.Get(ctx, state.Gid)
		if err != nil {
			log.Fatal(err)
		}
		if snap.Stopped {
			log.Infof("✅ done: submitted %v filled %v over %d slices", snap.Submitted, snap.Filled, snap.Seq)
			return
		}
	}
}
