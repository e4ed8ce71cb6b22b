package accdist

import (
	"algoexec/pkg/algo/params"
	"algoexec/pkg/types"
)

// Condition maps a field name to the comparison it must satisfy, e.g. {"orderType": {"eq": "LIMIT"}}.
type Condition map[string]map[string]any

type Section struct {
	Title   string     `json:"title"`
	Name    string     `json:"name"`
	Visible Condition  `json:"visible,omitempty"`
	Rows    [][]string `json:"rows"`
}

type Field struct {
	Component  string            `json:"component"`
	Label      string            `json:"label"`
	CustomHelp string            `json:"customHelp,omitempty"`
	Default    any               `json:"default,omitempty"`
	Options    map[string]string `json:"options,omitempty"`
	Visible    Condition         `json:"visible,omitempty"`
	Disabled   Condition         `json:"disabled,omitempty"`
}

type UIDef struct {
	Id                string           `json:"id"`
	Label             string           `json:"label"`
	CustomHelp        string           `json:"customHelp"`
	ConnectionTimeout int              `json:"connectionTimeout"`
	ActionTimeout     int              `json:"actionTimeout"`
	Sections          []Section        `json:"sections"`
	Fields            map[string]Field `json:"fields"`
	Actions           []string         `json:"actions"`
}

func priceRefOptions() map[string]string {
	labels := map[params.PriceRefType]string{
		params.PriceRefAsk:  "Best ask",
		params.PriceRefBid:  "Best bid",
		params.PriceRefMid:  "Book mid price",
		params.PriceRefLast: "Last trade price",
		params.PriceRefMA:   "Moving average",
		params.PriceRefEMA:  "Exponential moving average",
	}
	options := map[string]string{}
	for _, t := range params.PriceRefTypes {
		options[string(t)] = labels[t]
	}
	return options
}

func candleOptions() map[string]string {
	options := map[string]string{}
	for _, i := range types.Intervals {
		options[string(i)] = string(i)
	}
	return options
}

func refFields(prefix string, label string, fields map[string]Field) {
	indicator := Condition{prefix + ".type": {"in": []string{string(params.PriceRefMA), string(params.PriceRefEMA)}}}
	fields[prefix+".type"] = Field{
		Component: "input.dropdown",
		Label:     label,
		Default:   string(params.PriceRefMid),
		Options:   priceRefOptions(),
	}
	fields[prefix+".delta"] = Field{
		Component:  "input.number",
		Label:      "Delta $QUOTE",
		CustomHelp: "Added to the reference price",
	}
	fields[prefix+".args"] = Field{
		Component:  "input.number",
		Label:      "Period",
		CustomHelp: "Candles in the indicator window",
		Visible:    indicator,
	}
	fields[prefix+".candlePrice"] = Field{
		Component: "input.dropdown",
		Label:     "Candle Price",
		Default:   string(types.CandlePriceClose),
		Options: map[string]string{
			string(types.CandlePriceOpen):  "Open",
			string(types.CandlePriceHigh):  "High",
			string(types.CandlePriceLow):   "Low",
			string(types.CandlePriceClose): "Close",
		},
		Visible: indicator,
	}
	fields[prefix+".candleTimeFrame"] = Field{
		Component: "input.dropdown",
		Label:     "Candle Time Frame",
		Default:   string(types.Interval1m),
		Options:   candleOptions(),
		Visible:   indicator,
	}
}

// GetUIDef describes the order form: layout, field defaults and when fields apply.
func GetUIDef() UIDef {
	relative := Condition{"orderType": {"eq": string(types.AlgoOrderRelative)}}
	fields := map[string]Field{
		"orderType": {
			Component: "input.dropdown",
			Label:     "Order Type",
			Default:   string(types.AlgoOrderLimit),
			Options: map[string]string{
				string(types.AlgoOrderMarket):   "Market",
				string(types.AlgoOrderLimit):    "Limit",
				string(types.AlgoOrderRelative): "Relative",
			},
		},
		"symbol": {
			Component: "input.text",
			Label:     "Symbol",
		},
		"amount": {
			Component:  "input.amount",
			Label:      "Amount $BASE",
			CustomHelp: "Total order amount, negative to sell",
		},
		"sliceAmount": {
			Component:  "input.number",
			Label:      "Slice Amount $BASE",
			CustomHelp: "Child order size, same sign as the amount",
		},
		"limitPrice": {
			Component: "input.price",
			Label:     "Price $QUOTE",
			Visible:   Condition{"orderType": {"eq": string(types.AlgoOrderLimit)}},
		},
		"sliceInterval": {
			Component:  "input.number",
			Label:      "Slice Interval (ms)",
			CustomHelp: "Time between child orders",
		},
		"intervalDistortion": {
			Component:  "input.percent",
			Label:      "Interval Distortion %",
			CustomHelp: "Random variation applied to each interval",
			Default:    0,
		},
		"amountDistortion": {
			Component:  "input.percent",
			Label:      "Amount Distortion %",
			CustomHelp: "Random variation applied to each slice amount",
			Default:    0,
		},
		"submitDelay": {
			Component: "input.number",
			Label:     "Submit Delay (ms)",
			Default:   0,
		},
		"cancelDelay": {
			Component: "input.number",
			Label:     "Cancel Delay (ms)",
			Default:   0,
		},
		"catchUp": {
			Component:  "input.checkbox",
			Label:      "Catch Up",
			CustomHelp: "Submit the next slice at once when behind schedule",
			Default:    true,
		},
		"awaitFill": {
			Component:  "input.checkbox",
			Label:      "Await Fill",
			CustomHelp: "Hold the next slice until the previous one fills",
			Default:    true,
		},
		"lev": {
			Component: "input.number",
			Label:     "Leverage",
			Default:   1,
			Visible:   Condition{"_futures": {"eq": true}},
		},
	}
	refFields("relativeOffset", "Offset Reference", fields)
	refFields("relativeCap", "Cap Reference", fields)

	return UIDef{
		Id:                string(types.StrategyAccumulateDistribute),
		Label:             "Accumulate/Distribute",
		CustomHelp:        "Splits a large order into randomised slices submitted over time, priced at market, at a fixed limit or relative to a live reference with an optional cap.",
		ConnectionTimeout: 10000,
		ActionTimeout:     10000,
		Sections: []Section{{
			Name: "general",
			Rows: [][]string{
				{"orderType", "symbol"},
				{"amount", "limitPrice"},
				{"sliceAmount", "sliceInterval"},
				{"intervalDistortion", "amountDistortion"},
			},
		}, {
			Title:   "Relative Offset",
			Name:    "offset",
			Visible: relative,
			Rows: [][]string{
				{"relativeOffset.type", "relativeOffset.delta"},
				{"relativeOffset.args", "relativeOffset.candlePrice", "relativeOffset.candleTimeFrame"},
			},
		}, {
			Title:   "Relative Cap",
			Name:    "cap",
			Visible: relative,
			Rows: [][]string{
				{"relativeCap.type", "relativeCap.delta"},
				{"relativeCap.args", "relativeCap.candlePrice", "relativeCap.candleTimeFrame"},
			},
		}, {
			Name: "execution",
			Rows: [][]string{
				{"submitDelay", "cancelDelay"},
				{"catchUp", "awaitFill"},
				{"lev"},
			},
		}},
		Fields:  fields,
		Actions: []string{"preview", "submit"},
	}
}
