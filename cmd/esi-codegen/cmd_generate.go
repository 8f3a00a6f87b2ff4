package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/esi-codegen/internal/config"
	"github.com/robert-at-pretension-io/esi-codegen/internal/pipeline"
)

type cmdGenerate struct {
	configPath string
	outDir     string
	jobs       int
	noCache    bool
	noCheck    bool
	metrics    string
	timing     string
}

func (*cmdGenerate) help() *commandHelp {
	return &commandHelp{
		usage:   "generate [flags] [ESI_FILE_OR_DIR...]",
		summary: "Run the full pipeline: records, header and objd table per ESI file",
		args:    cobra.ArbitraryArgs,
	}
}

func (cmd *cmdGenerate) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.configPath, "config", "c", "", "configuration file (.json, .jsonnet or .yaml)")
	flags.StringVarP(&cmd.outDir, "output", "o", "", "write artifacts here instead of next to each input")
	flags.IntVarP(&cmd.jobs, "jobs", "j", 0, "files processed in parallel (0 = one per CPU)")
	flags.BoolVar(&cmd.noCache, "no-cache", false, "ignore and do not update the records cache")
	flags.BoolVar(&cmd.noCheck, "no-check", false, "skip the syntax check of generated C")
	flags.StringVar(&cmd.metrics, "metrics", "", "write Prometheus text-format counters to this file")
	flags.StringVar(&cmd.timing, "timing", "", "write JSONL stage timings to this file")
}

func (cmd *cmdGenerate) run(ctx context.Context, argv []string) int {
	if len(argv) == 0 {
		argv = []string{"."}
	}
	root := argv[0]
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}

	cfg, err := cmd.loadConfig(root)
	if err != nil {
		return fail(err)
	}
	cmd.override(cfg)

	var files []string
	for _, arg := range argv {
		found, err := cfg.ResolveInputs(arg)
		if err != nil {
			return fail(err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fail(fmt.Errorf("no ESI files found in %v", argv))
	}

	p := pipeline.New(cfg, log)
	p.Version = version
	p.OutputDir = cmd.outDir
	report, err := p.RunFiles(ctx, root, files)
	if err != nil {
		return fail(err)
	}

	printReport(report)
	if err := report.Err(); err != nil {
		return fail(err)
	}
	return 0
}

func (cmd *cmdGenerate) loadConfig(root string) (*config.Config, error) {
	if cmd.configPath != "" {
		cfg, err := config.LoadFile(cmd.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", cmd.configPath, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(root)
	if err != nil {
		fmt.Printf("Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg, nil
}

func (cmd *cmdGenerate) override(cfg *config.Config) {
	if cmd.jobs > 0 {
		cfg.Analysis.MaxParallelFiles = cmd.jobs
	}
	if cmd.noCache {
		off := false
		cfg.Analysis.Cache.Enabled = &off
	}
	if cmd.noCheck {
		off := false
		cfg.Check.Syntax = &off
	}
	if cmd.metrics != "" {
		cfg.Analysis.MetricsFile = cmd.metrics
	}
	if cmd.timing != "" {
		cfg.Analysis.TimingFile = cmd.timing
	}
}

func printReport(report *pipeline.Report) {
	var entries, warnings, findings, lintErrors int
	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Printf("✗ %s\n", f.File)
			continue
		}
		status := ""
		if f.CacheHit {
			status = " (cached)"
		}
		fmt.Printf("✓ %s: %d entries%s\n", f.File, len(f.Records), status)
		for _, path := range []string{f.RecordsPath, f.HeaderPath} {
			if path != "" {
				fmt.Printf("  Created %s\n", path)
			}
		}
		for _, w := range f.Warnings {
			fmt.Printf("  %s\n", w)
		}
		if f.Lint != nil {
			for _, v := range f.Lint.Violations {
				fmt.Printf("  [%s] %s: %s\n", v.Severity, v.Rule, v.Message)
			}
			findings += f.Lint.Summary.TotalViolations
			lintErrors += f.Lint.Summary.Errors
		}
		entries += len(f.Records)
		warnings += len(f.Warnings)
	}
	fmt.Printf("\nProcessed %d file(s), %d failed: %d entries, %d warnings, %d lint findings (%d errors)\n",
		len(report.Files), report.Failed(), entries, warnings, findings, lintErrors)
}
