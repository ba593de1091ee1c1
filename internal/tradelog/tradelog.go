// Package tradelog appends accounting facts to daily JSONL files: one line
// per executed fill, realized trade, or stop event. Files roll over at the
// IST session date and can be compressed after a retention window.
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
)

var mu sync.Mutex

var ist = time.FixedZone("IST", 19800)

// Entry records one executed fill and the realized P&L it booked.
type Entry struct {
	Time       string  `json:"time"`
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	Qty        int64   `json:"qty"`
	Price      float64 `json:"price"`
	OrderID    string  `json:"order_id"`
	RealizedPnL float64 `json:"realized_pnl"`
	Reversed   bool    `json:"reversed,omitempty"`
}

// StopEntry records a stop update or trigger for the order layer's audit
// trail.
type StopEntry struct {
	Time       string  `json:"time"`
	Instrument string  `json:"instrument"`
	Event      string  `json:"event"` // STOP_UPDATED or STOP_TRIGGERED
	Price      float64 `json:"price"`
	OldStop    float64 `json:"old_stop,omitempty"`
	NewStop    float64 `json:"new_stop,omitempty"`
	StopPrice  float64 `json:"stop_price,omitempty"`
}

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	d := t.In(ist).Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}

func stopsFilepath(t time.Time) string {
	d := t.In(ist).Format("2006-01-02")
	return filepath.Join(logDir(), "stops", d+".txt")
}

// Append writes a fill entry to today's log.
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(ist)
	e.Time = now.Format("2006-01-02 15:04:05")
	return appendLine(dailyFilepath(now), e)
}

// AppendStopEvent writes a stop update/trigger to today's stops log.
func AppendStopEvent(e StopEntry) error {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now().In(ist)
	e.Time = now.Format("2006-01-02 15:04:05")
	return appendLine(stopsFilepath(now), e)
}

func appendLine(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(v)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips log files older than retentionDays and removes the
// originals. A zero or negative retention is a no-op.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}
		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()
		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
