package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
)

// timingEvent is one JSON line. Step events carry only timing; file and
// run events also carry what the run produced.
type timingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`

	Files      int  `json:"files,omitempty"`
	Failed     int  `json:"failed,omitempty"`
	Entries    int  `json:"entries,omitempty"`
	Duplicates int  `json:"duplicates,omitempty"`
	Warnings   int  `json:"warnings,omitempty"`
	Lint       int  `json:"lint_findings,omitempty"`
	CacheHit   bool `json:"cache_hit,omitempty"`
}

// timingRecorder streams run, step and per-file events as JSON lines. A nil
// or disabled recorder ignores every call.
type timingRecorder struct {
	start time.Time
	mu    sync.Mutex
	file  *os.File
	enc   *json.Encoder
	err   error
}

func newTimingRecorder(start time.Time, path string) *timingRecorder {
	tr := &timingRecorder{start: start}
	if path == "" {
		return tr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tr.err = err
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *timingRecorder) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

func (tr *timingRecorder) Close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
}

func (tr *timingRecorder) enabled() bool {
	return tr != nil && tr.enc != nil
}

// emit stamps ev with the span [start, now) relative to the run start.
func (tr *timingRecorder) emit(ev timingEvent, start time.Time) {
	ev.StartMS = durationToMS(start.Sub(tr.start))
	ev.DurationMS = durationToMS(time.Since(start))
	ev.EndMS = ev.StartMS + ev.DurationMS
	tr.mu.Lock()
	_ = tr.enc.Encode(ev)
	tr.mu.Unlock()
}

// Stage records a run-wide step such as "process".
func (tr *timingRecorder) Stage(phase string, start time.Time) {
	if !tr.enabled() {
		return
	}
	tr.emit(timingEvent{Phase: phase, Kind: "stage"}, start)
}

// Step records one step of one file: "resolve", "lint" or "render".
func (tr *timingRecorder) Step(phase, file, status string, start time.Time) {
	if !tr.enabled() {
		return
	}
	tr.emit(timingEvent{Phase: phase, Kind: "step", File: file, Status: status}, start)
}

// FileDone records a finished file with what it produced.
func (tr *timingRecorder) FileDone(res *FileResult, start time.Time) {
	if !tr.enabled() {
		return
	}
	ev := timingEvent{
		Phase:    "file",
		Kind:     "file",
		File:     res.File,
		Status:   "ok",
		Entries:  len(res.Records),
		Warnings: len(res.Warnings),
		CacheHit: res.CacheHit,
	}
	if res.Err != nil {
		ev.Status = "failed"
	}
	ev.Duplicates = countDuplicates(res.Warnings)
	if res.Lint != nil {
		ev.Lint = res.Lint.Summary.TotalViolations
	}
	tr.emit(ev, start)
}

// RunDone records the whole run with per-file totals.
func (tr *timingRecorder) RunDone(report *Report, start time.Time) {
	if !tr.enabled() {
		return
	}
	ev := timingEvent{Phase: "total", Kind: "stage", Files: len(report.Files), Failed: report.Failed()}
	for i := range report.Files {
		ev.Entries += len(report.Files[i].Records)
		ev.Duplicates += countDuplicates(report.Files[i].Warnings)
	}
	tr.emit(ev, start)
}

func countDuplicates(warnings []diag.Warning) int {
	n := 0
	for _, w := range warnings {
		if w.Kind == diag.DuplicateEntry {
			n++
		}
	}
	return n
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}

// resolveTimingPath picks the JSONL destination: the environment wins over
// the config, and a bare ESI_CODEGEN_TIMING=1 writes timing.jsonl under the
// root.
func resolveTimingPath(rootPath, configured string) string {
	if envPath := os.Getenv("ESI_CODEGEN_TIMING_JSONL"); envPath != "" {
		return envPath
	}
	if configured != "" {
		return configured
	}
	if envBool("ESI_CODEGEN_TIMING") {
		if rootPath == "" {
			return "timing.jsonl"
		}
		return filepath.Join(rootPath, "timing.jsonl")
	}
	return ""
}
