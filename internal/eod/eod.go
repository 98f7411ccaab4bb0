// Package eod builds the end-of-day fill report. A desk day is a KST
// calendar day; its report is due once the US session that opened that
// evening has closed.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"quant-desk/internal/interfaces"
	"quant-desk/internal/tradelog"
	"quant-desk/internal/types"
)

var (
	kst = time.FixedZone("KST", 9*60*60)
	et  = loadET()
)

func loadET() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*60*60)
}

// usCloseBuffer delays the report past the 16:00 ET bell.
const usCloseBuffer = 10 * time.Minute

type aggRow struct {
	Symbol     string
	BuyQty     int
	BuyValue   float64
	SellQty    int
	SellValue  float64
	ShortQty   int
	ShortValue float64
	CoverQty   int
	CoverValue float64
	PairTrades int
	Rejected   int
}

// RealizedPnL matches longs (buy->sell) and shorts (short->cover) at
// average prices, in the instrument's currency.
func (r aggRow) RealizedPnL() float64 {
	long := float64(min(r.BuyQty, r.SellQty)) * (avg(r.SellValue, r.SellQty) - avg(r.BuyValue, r.BuyQty))
	short := float64(min(r.ShortQty, r.CoverQty)) * (avg(r.ShortValue, r.ShortQty) - avg(r.CoverValue, r.CoverQty))
	return long + short
}

func avg(value float64, qty int) float64 {
	if qty <= 0 {
		return 0
	}
	return value / float64(qty)
}

type Summarizer struct {
	journal *tradelog.Journal
	clock   func() time.Time
}

var _ interfaces.EodSummarizer = (*Summarizer)(nil)

func New(journal *tradelog.Journal, clock func() time.Time) *Summarizer {
	if clock == nil {
		clock = time.Now
	}
	return &Summarizer{journal: journal, clock: clock}
}

// CSVPath is where the report for the KST day containing t is written.
func (s *Summarizer) CSVPath(t time.Time) string {
	return filepath.Join(s.journal.Root(), "eod", t.In(kst).Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates the day's successful fills per symbol. It returns
// an empty path and no error when the day has no journal or no fills.
func (s *Summarizer) SummarizeDay(t time.Time) (string, error) {
	aggs, err := s.aggregate(s.journal.DailyPath(t))
	if err != nil || len(aggs) == 0 {
		return "", err
	}
	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := s.CSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"symbol", "buy_qty", "buy_avg", "sell_qty", "sell_avg", "short_qty", "short_avg", "cover_qty", "cover_avg", "pair_trades", "rejected", "realized_pnl"}
	if err := w.Write(headers); err != nil {
		return "", err
	}
	var totalPnL float64
	var totalRejected, totalPairs int
	for _, k := range keys {
		r := aggs[k]
		pnl := r.RealizedPnL()
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.BuyQty), fmt.Sprintf("%.4f", avg(r.BuyValue, r.BuyQty)),
			strconv.Itoa(r.SellQty), fmt.Sprintf("%.4f", avg(r.SellValue, r.SellQty)),
			strconv.Itoa(r.ShortQty), fmt.Sprintf("%.4f", avg(r.ShortValue, r.ShortQty)),
			strconv.Itoa(r.CoverQty), fmt.Sprintf("%.4f", avg(r.CoverValue, r.CoverQty)),
			strconv.Itoa(r.PairTrades),
			strconv.Itoa(r.Rejected),
			fmt.Sprintf("%.2f", pnl),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalPnL += pnl
		totalRejected += r.Rejected
		totalPairs += r.PairTrades
	}
	// The P&L total mixes KRW and USD rows.
	_ = w.Write([]string{"TOTAL", "", "", "", "", "", "", "", "", strconv.Itoa(totalPairs), strconv.Itoa(totalRejected), fmt.Sprintf("%.2f", totalPnL)})
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

func (s *Summarizer) aggregate(path string) (map[string]*aggRow, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	row := func(sym string) *aggRow {
		r := aggs[sym]
		if r == nil {
			r = &aggRow{Symbol: sym}
			aggs[sym] = r
		}
		return r
	}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e tradelog.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		if e.Symbol == "" || e.Symbol == "CASH" {
			continue
		}
		value := float64(e.Qty) * e.Price
		switch types.Action(e.Side) {
		case types.ActionBuy, types.ActionSell, types.ActionShort, types.ActionCover,
			types.ActionEnterPair, types.ActionExitPair:
		default:
			continue
		}
		r := row(e.Symbol)
		if !e.Success {
			r.Rejected++
			continue
		}
		switch types.Action(e.Side) {
		case types.ActionBuy:
			r.BuyQty += e.Qty
			r.BuyValue += value
		case types.ActionSell:
			r.SellQty += e.Qty
			r.SellValue += value
		case types.ActionShort:
			r.ShortQty += e.Qty
			r.ShortValue += value
		case types.ActionCover:
			r.CoverQty += e.Qty
			r.CoverValue += value
		case types.ActionEnterPair, types.ActionExitPair:
			r.PairTrades++
		}
	}
	return aggs, sc.Err()
}

func (s *Summarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.clock())
}

// ShouldRunNow returns the previous KST day once the US session that
// opened on it has closed, provided it has a journal and no report yet.
func (s *Summarizer) ShouldRunNow() (bool, time.Time) {
	now := s.clock().In(kst)
	day := now.AddDate(0, 0, -1)
	y, m, d := day.Date()
	cutoff := time.Date(y, m, d, 16, 0, 0, 0, et).Add(usCloseBuffer)
	if now.Before(cutoff) {
		return false, day
	}
	if _, err := os.Stat(s.journal.DailyPath(day)); err != nil {
		return false, day
	}
	if _, err := os.Stat(s.CSVPath(day)); errors.Is(err, os.ErrNotExist) {
		return true, day
	}
	return false, day
}
