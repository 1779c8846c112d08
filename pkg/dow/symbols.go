package dow

import "sort"

// Components maps each Dow Jones Industrial Average constituent to the
// MIC of the exchange it trades on.
//
// The set is fixed for the lifetime of the process - index changes ship
// as a new release.
var Components = map[string]string{
	"AAPL": "XNAS",
	"AMGN": "XNAS",
	"AXP":  "XNYS",
	"BA":   "XNYS",
	"CAT":  "XNYS",
	"CRM":  "XNYS",
	"CSCO": "XNAS",
	"CVX":  "XNYS",
	"DIS":  "XNYS",
	"DOW":  "XNYS",
	"GS":   "XNYS",
	"HD":   "XNYS",
	"HON":  "XNYS",
	"IBM":  "XNYS",
	"INTC": "XNAS",
	"JNJ":  "XNYS",
	"JPM":  "XNYS",
	"KO":   "XNYS",
	"MCD":  "XNYS",
	"MMM":  "XNYS",
	"MRK":  "XNYS",
	"MSFT": "XNAS",
	"NKE":  "XNYS",
	"PG":   "XNYS",
	"TRV":  "XNYS",
	"UNH":  "XNYS",
	"V":    "XNYS",
	"VZ":   "XNYS",
	"WBA":  "XNAS",
	"WMT":  "XNYS",
}

// GroupByExchange buckets the tracked symbols by exchange MIC, each
// bucket sorted so that outbound request parameters stay stable across
// cycles.
func GroupByExchange(components map[string]string) map[string][]string {
	byExchange := map[string][]string{}

	for symbol, exchange := range components {
		byExchange[exchange] = append(byExchange[exchange], symbol)
	}

	for _, symbols := range byExchange {
		sort.Strings(symbols)
	}

	return byExchange
}
