// Package tradelog is the desk's append-only journal: one JSON-lines file
// per KST trading day for activity, and one for oracle decisions. Old
// files are gzipped by CompressOlder.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"quant-desk/internal/types"
)

var kst = time.FixedZone("KST", 9*60*60)

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

// Entry is one journaled ledger entry.
type Entry struct {
	Time       string   `json:"time"`
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Qty        int      `json:"qty"`
	Price      float64  `json:"price"`
	OrderID    string   `json:"orderId,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Success    bool     `json:"success"`
	ErrorKind  string   `json:"errorKind,omitempty"`
}

type DecisionEntry struct {
	Time       string             `json:"time"`
	Symbol     string             `json:"symbol"`
	Strategy   string             `json:"strategy,omitempty"`
	Action     string             `json:"action"`
	Reason     string             `json:"reason"`
	Confidence float64            `json:"confidence"`
	Price      float64            `json:"price,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// FromActivity converts a ledger entry into its journal line.
func FromActivity(e types.ActivityEntry) Entry {
	return Entry{
		ID:         e.ID,
		Symbol:     e.Symbol,
		Side:       string(e.Action),
		Qty:        e.Shares,
		Price:      e.Price,
		OrderID:    e.OrderID,
		Reason:     e.Reason,
		Confidence: e.Confidence,
		Success:    e.Success,
		ErrorKind:  e.ErrorKind,
	}
}

type Journal struct {
	mu    sync.Mutex
	dir   string
	clock func() time.Time
}

// New journals into dir. An empty dir uses TRADER_LOG_DIR, then "logs".
func New(dir string, clock func() time.Time) *Journal {
	if dir == "" {
		dir = Dir()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Journal{dir: dir, clock: clock}
}

func Dir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func (j *Journal) Root() string { return j.dir }

// DailyPath is the activity file for the KST day containing t.
func (j *Journal) DailyPath(t time.Time) string {
	return filepath.Join(j.dir, t.In(kst).Format(dateLayout)+".txt")
}

func (j *Journal) DecisionsPath(t time.Time) string {
	return filepath.Join(j.dir, "decisions", t.In(kst).Format(dateLayout)+".txt")
}

// Append journals one entry, stamping it with the current KST time.
func (j *Journal) Append(e Entry) error {
	now := j.clock().In(kst)
	e.Time = now.Format(timeLayout)
	return j.write(j.DailyPath(now), e)
}

// AppendActivity journals a ledger entry at its own timestamp.
func (j *Journal) AppendActivity(a types.ActivityEntry) error {
	e := FromActivity(a)
	ts := a.Timestamp
	if ts.IsZero() {
		ts = j.clock()
	}
	e.Time = ts.In(kst).Format(timeLayout)
	return j.write(j.DailyPath(ts), e)
}

func (j *Journal) AppendDecision(e DecisionEntry) error {
	now := j.clock().In(kst)
	e.Time = now.Format(timeLayout)
	return j.write(j.DecisionsPath(now), e)
}

func (j *Journal) write(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips every .txt journal last modified more than
// retentionDays ago. A file whose .gz already exists is just removed.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := j.clock().AddDate(0, 0, -retentionDays)

	j.mu.Lock()
	defer j.mu.Unlock()
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
