package vm

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lookbusy1344/wolfvm/isa"
)

// Statistics accumulates a per-kind instruction histogram and a total
// cycle count over a run, for the -stats CLI flag and the debugger
// service's statistics calls.
type Statistics struct {
	startTime time.Time
	counts    map[isa.Kind]uint64
	total     uint64
}

// NewStatistics returns an empty Statistics collector.
func NewStatistics() *Statistics {
	return &Statistics{counts: make(map[isa.Kind]uint64)}
}

// Start resets the collector and records the starting time.
func (s *Statistics) Start() {
	s.startTime = time.Now()
	s.counts = make(map[isa.Kind]uint64)
	s.total = 0
}

// RecordInstruction tallies one executed instruction of the given kind.
func (s *Statistics) RecordInstruction(kind isa.Kind) {
	s.counts[kind]++
	s.total++
}

type kindCount struct {
	Mnemonic string `json:"mnemonic"`
	Count    uint64 `json:"count"`
}

func (s *Statistics) sortedCounts() []kindCount {
	out := make([]kindCount, 0, len(s.counts))
	for kind, count := range s.counts {
		out = append(out, kindCount{Mnemonic: kind.String(), Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Mnemonic < out[j].Mnemonic
	})
	return out
}

// String renders a human-readable summary.
func (s *Statistics) String() string {
	out := fmt.Sprintf("Instructions executed: %d\nElapsed: %v\n", s.total, time.Since(s.startTime))
	for _, kc := range s.sortedCounts() {
		out += fmt.Sprintf("  %-8s %d\n", kc.Mnemonic, kc.Count)
	}
	return out
}

// ExportJSON writes the histogram as a JSON object.
func (s *Statistics) ExportJSON(w io.Writer) error {
	payload := struct {
		Total        uint64      `json:"total_instructions"`
		ElapsedNanos int64       `json:"elapsed_nanos"`
		Histogram    []kindCount `json:"histogram"`
	}{
		Total:        s.total,
		ElapsedNanos: time.Since(s.startTime).Nanoseconds(),
		Histogram:    s.sortedCounts(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// ExportCSV writes the histogram as mnemonic,count rows.
func (s *Statistics) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"mnemonic", "count"}); err != nil {
		return err
	}
	for _, kc := range s.sortedCounts() {
		if err := cw.Write([]string{kc.Mnemonic, fmt.Sprintf("%d", kc.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportHTML writes a minimal standalone HTML table.
func (s *Statistics) ExportHTML(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "<!doctype html>\n<title>wolfvm statistics</title>\n<table border=\"1\">\n<tr><th>mnemonic</th><th>count</th></tr>\n"); err != nil {
		return err
	}
	for _, kc := range s.sortedCounts() {
		if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td></tr>\n", kc.Mnemonic, kc.Count); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</table>\n<p>Total: %d instructions</p>\n", s.total)
	return err
}
