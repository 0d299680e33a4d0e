// internal/sched/trace.go

package sched

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// csvTrace records every scheduler event to a CSV file.
type csvTrace struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

func newCSVTrace(path string) (*csvTrace, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)

	// write header
	w.Write([]string{"timestamp", "tick", "event", "task_id", "cpu", "ran_ticks", "vruntime"})
	w.Flush()
	return &csvTrace{f: f, w: w}, nil
}

func (t *csvTrace) record(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := []string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatInt(int64(ev.Tick), 10),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.TaskID), 10),
		strconv.Itoa(ev.CPU),
		strconv.FormatInt(ev.RanTicks, 10),
		fmt.Sprintf("%.4f", ev.Vruntime),
	}
	t.w.Write(rec)
	t.w.Flush()
}

func (t *csvTrace) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w.Flush()
	t.f.Close()
}
