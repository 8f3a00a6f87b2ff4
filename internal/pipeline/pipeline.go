// Package pipeline runs ESI files end to end: parse, resolve, deduplicate,
// validate, lint, render and write artifacts. Files are independent and are
// processed in parallel; results come back in input order.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/esi-codegen/internal/config"
	"github.com/robert-at-pretension-io/esi-codegen/internal/dedup"
	"github.com/robert-at-pretension-io/esi-codegen/internal/diag"
	"github.com/robert-at-pretension-io/esi-codegen/internal/esi"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/policy"
	"github.com/robert-at-pretension-io/esi-codegen/internal/records"
	"github.com/robert-at-pretension-io/esi-codegen/internal/render"
	"github.com/robert-at-pretension-io/esi-codegen/internal/resolver"
	"github.com/robert-at-pretension-io/esi-codegen/internal/validator"
)

const cacheFormat = "records-v1"

// Pipeline holds the configuration shared by every file of a run.
type Pipeline struct {
	Config *config.Config
	Log    *logrus.Logger
	// Version is folded into cache keys. Empty means "dev".
	Version string
	// OutputDir overrides Config.Output.Dir when set.
	OutputDir string

	// CUE values are not safe for concurrent use.
	cueMu   sync.Mutex
	records *validator.Validator
	outputs *validator.OutputValidator
	engine  *policy.Engine
}

// FileResult is the outcome for one input file. Err is set when the file
// failed; no artifacts are written for a failed file.
type FileResult struct {
	File        string
	RecordsPath string
	HeaderPath  string
	Records     []records.Record
	Warnings    []diag.Warning
	Lint        *policy.Result
	CacheHit    bool
	Duration    time.Duration
	Err         error
}

// Report collects every file result plus errors that belong to the run
// itself (cache, timing, metrics).
type Report struct {
	Files  []FileResult
	Errors []error
}

// Failed counts files that did not produce artifacts.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Err folds file and run errors into one error, or nil.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	errs = append(errs, r.Errors...)
	if len(errs) == 0 {
		return nil
	}
	return errors.New("pipeline errors:\n" + formatPipelineErrors(errs))
}

func New(cfg *config.Config, log *logrus.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{Config: cfg, Log: log}
}

// Run resolves the configured inputs under rootPath and processes them.
func (p *Pipeline) Run(ctx context.Context, rootPath string) (*Report, error) {
	files, err := p.Config.ResolveInputs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolving inputs: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no ESI files found under %s", rootPath)
	}
	return p.RunFiles(ctx, rootPath, files)
}

// RunFiles processes files in parallel. rootPath anchors the cache and the
// default timing file.
func (p *Pipeline) RunFiles(ctx context.Context, rootPath string, files []string) (*Report, error) {
	runStart := time.Now()
	report := &Report{Files: make([]FileResult, len(files))}

	if err := p.prepare(ctx); err != nil {
		return nil, err
	}

	timing := newTimingRecorder(runStart, resolveTimingPath(rootPath, p.Config.Analysis.TimingFile))
	defer timing.Close()
	if err := timing.Err(); err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("timing output: %w", err))
	}

	var cache *recordsCache
	if cacheEnabled(p.Config) {
		cache = newRecordsCache(resolveCacheDir(rootPath, p.Config), cacheFormat+"/"+p.version())
		if err := cache.Load(); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("cache load failed: %w", err))
			cache = nil
		}
	}

	p.Log.WithFields(logrus.Fields{
		"files":    len(files),
		"parallel": p.parallelism(),
		"cache":    cache != nil,
	}).Debug("starting run")

	stepStart := time.Now()
	var g errgroup.Group
	g.SetLimit(p.parallelism())
	for i, file := range files {
		g.Go(func() error {
			report.Files[i] = p.processFile(ctx, cache, timing, file)
			return nil
		})
	}
	_ = g.Wait()
	timing.Stage("process", stepStart)

	if cache != nil {
		if err := cache.Save(); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("cache save failed: %w", err))
		}
	}

	m := newMetrics()
	m.seed()
	for i := range report.Files {
		m.observe(&report.Files[i])
	}
	if path := p.Config.Analysis.MetricsFile; path != "" {
		if err := m.write(path); err != nil {
			report.Errors = append(report.Errors, err)
		}
	}

	timing.RunDone(report, runStart)
	return report, nil
}

func (p *Pipeline) prepare(ctx context.Context) error {
	if p.records != nil {
		return nil
	}
	recs, err := validator.New()
	if err != nil {
		return fmt.Errorf("CRITICAL: failed to initialize record validator: %w", err)
	}
	outputs, err := validator.NewOutputValidator()
	if err != nil {
		return fmt.Errorf("CRITICAL: failed to initialize lint output validator: %w", err)
	}
	engine, err := policy.New(ctx, policy.Options{
		ExtraDir: p.Config.Lint.PolicyDir,
		Severity: p.Config.GetRuleSeverity,
	})
	if err != nil {
		return fmt.Errorf("loading lint policies: %w", err)
	}
	p.records, p.outputs, p.engine = recs, outputs, engine
	return nil
}

func (p *Pipeline) processFile(ctx context.Context, cache *recordsCache, timing *timingRecorder, path string) FileResult {
	start := time.Now()
	res := FileResult{File: path}
	log := p.Log.WithField("file", path)

	if err := p.process(ctx, cache, timing, log, &res); err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)
		log.WithError(err).Error("file failed")
	}
	res.Duration = time.Since(start)
	timing.FileDone(&res, start)
	return res
}

func (p *Pipeline) process(ctx context.Context, cache *recordsCache, timing *timingRecorder, log *logrus.Entry, res *FileResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(res.File)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	stepStart := time.Now()
	contentHash := hashBytes(data)
	if cache != nil {
		cached, ok, err := cache.Get(res.File, contentHash)
		if err != nil {
			log.WithError(err).Warn("cache read failed")
		} else if ok {
			res.Records, res.Warnings, res.CacheHit = cached.Records, cached.Warnings, true
			log.Debug("cache hit")
		}
	}

	if !res.CacheHit {
		entries, warnings, err := Resolve(bytes.NewReader(data), log)
		if err != nil {
			return err
		}
		res.Records = records.FromEntries(entries)
		res.Warnings = warnings
	}
	status := "resolved"
	if res.CacheHit {
		status = "cache_hit"
	}
	timing.Step("resolve", res.File, status, stepStart)

	if err := p.validateRecords(res.Records); err != nil {
		return err
	}
	if cache != nil && !res.CacheHit {
		if err := cache.Put(res.File, contentHash, cachedResult{Records: res.Records, Warnings: res.Warnings}); err != nil {
			log.WithError(err).Warn("cache write failed")
		}
	}

	entries, err := records.ToEntries(res.Records)
	if err != nil {
		return err
	}

	stepStart = time.Now()
	lint, err := p.lint(ctx, log, entries)
	if err != nil {
		return err
	}
	res.Lint = lint
	timing.Step("lint", res.File, "", stepStart)
	if failOn := p.Config.Lint.FailOnError; failOn != nil && *failOn && lint.HasErrors() {
		return fmt.Errorf("lint reported %d error(s)", lint.Summary.Errors)
	}

	var header []byte
	if config.Enabled(p.Config.Output.Header) {
		stepStart = time.Now()
		header, err = p.renderHeader(ctx, entries)
		if err != nil {
			return err
		}
		timing.Step("render", res.File, "", stepStart)
	}

	if config.Enabled(p.Config.Output.Records) {
		res.RecordsPath = p.artifactPath(res.File, filepath.Base(res.File)+".json")
		if err := records.Write(res.RecordsPath, res.Records); err != nil {
			return err
		}
	}
	if header != nil {
		base := strings.TrimSuffix(filepath.Base(res.File), filepath.Ext(res.File))
		res.HeaderPath = p.artifactPath(res.File, base+".h")
		if err := writeFile(res.HeaderPath, header); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"entries":    len(res.Records),
		"warnings":   len(res.Warnings),
		"violations": len(lint.Violations),
	}).Info("processed")
	return nil
}

// Resolve parses one ESI document and returns its deduplicated entries with
// every warning raised on the way.
func Resolve(r io.Reader, log logrus.FieldLogger) ([]objd.Entry, []diag.Warning, error) {
	doc, err := esi.Parse(r)
	if err != nil {
		return nil, nil, err
	}
	resolved, err := resolver.Resolve(doc, resolver.Options{Logger: log})
	if err != nil {
		return nil, nil, err
	}
	entries, dups := dedup.Run(resolved.Entries, log)
	return entries, append(resolved.Warnings, dups...), nil
}

func (p *Pipeline) validateRecords(recs []records.Record) error {
	if recs == nil {
		recs = []records.Record{}
	}
	p.cueMu.Lock()
	defer p.cueMu.Unlock()
	if err := p.records.Validate(recs); err != nil {
		return fmt.Errorf("record contract violation: %w", err)
	}
	return nil
}

func (p *Pipeline) lint(ctx context.Context, log *logrus.Entry, entries []objd.Entry) (*policy.Result, error) {
	result, err := p.engine.Evaluate(ctx, policy.InputFromEntries(entries))
	if err != nil {
		return nil, err
	}

	p.cueMu.Lock()
	err = p.outputs.Validate(result)
	p.cueMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("lint output contract violation: %w", err)
	}

	for _, v := range result.Violations {
		entry := log.WithFields(logrus.Fields{
			"rule":     v.Rule,
			"index":    v.Index,
			"subindex": v.Subindex,
		})
		switch v.Severity {
		case policy.SeverityError, policy.SeverityWarning:
			entry.Warn(v.Message)
		default:
			entry.Info(v.Message)
		}
	}
	return result, nil
}

// renderHeader produces the struct header, with the objd table appended
// when enabled, and rejects it if the C grammar does not accept it.
func (p *Pipeline) renderHeader(ctx context.Context, entries []objd.Entry) ([]byte, error) {
	opts := render.Options{
		StructName: p.Config.Render.StructName,
		VarName:    p.Config.Render.VarName,
		TableName:  p.Config.Render.TableName,
		TestGuard:  p.Config.Render.TestGuard,
	}

	var buf bytes.Buffer
	if err := render.WriteHeader(&buf, entries, opts); err != nil {
		return nil, err
	}
	if config.Enabled(p.Config.Output.Objd) {
		if err := render.WriteTable(&buf, entries, opts); err != nil {
			return nil, err
		}
	}

	if config.Enabled(p.Config.Check.Syntax) {
		errs, err := render.CheckSyntax(ctx, buf.Bytes())
		if err != nil {
			return nil, err
		}
		if len(errs) > 0 {
			return nil, fmt.Errorf("generated C does not parse: %s (%d issue(s))", errs[0], len(errs))
		}
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) artifactPath(input, name string) string {
	dir := p.OutputDir
	if dir == "" {
		dir = p.Config.Output.Dir
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}

func (p *Pipeline) parallelism() int {
	if n := p.Config.Analysis.MaxParallelFiles; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func (p *Pipeline) version() string {
	if p.Version == "" {
		return "dev"
	}
	return p.Version
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func envBool(key string) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return val == "1" || val == "true" || val == "yes" || val == "on"
}
