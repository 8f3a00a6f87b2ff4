package policy

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
)

//go:embed rules/*.rego
var builtinRules embed.FS

const violationsQuery = "data.esi.lint.all_violations"

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
	// SeverityOff disables a rule when returned by Options.Severity.
	SeverityOff = "off"
)

// Engine evaluates the dictionary lint rules against resolved entries.
type Engine struct {
	query    rego.PreparedEvalQuery
	severity func(rule, defaultSeverity string) string
}

// Violation represents a lint finding for one entry.
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Object   string `json:"object"`
	Index    string `json:"index"`
	Subindex int    `json:"subindex"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the data structure passed to OPA
type Input struct {
	Entries []Entry `json:"entries"`
}

// Entry is a record plus the facts the rules need about its mapped type.
type Entry struct {
	Name        string `json:"name"`
	SubName     string `json:"sub_name"`
	Index       string `json:"index"`
	Subindex    int    `json:"subindex"`
	Type        string `json:"type"`
	BitLength   int    `json:"bit_length"`
	Access      string `json:"access"`
	Form        string `json:"form"`
	Kind        string `json:"kind"`
	Count       int    `json:"count"`
	NaturalBits int    `json:"natural_bits"`
}

// InputFromEntries builds the policy input for a resolved dictionary.
func InputFromEntries(entries []objd.Entry) Input {
	in := Input{Entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		in.Entries = append(in.Entries, Entry{
			Name:        e.Name,
			SubName:     e.SubName,
			Index:       e.HexIndex(),
			Subindex:    int(e.Subindex),
			Type:        e.Designator,
			BitLength:   e.BitLength,
			Access:      e.Access.String(),
			Form:        e.Type.Form.String(),
			Kind:        e.Type.Kind.String(),
			Count:       e.Type.Count,
			NaturalBits: e.Type.Bits(),
		})
	}
	return in
}

type Options struct {
	// ExtraDir holds additional .rego files in package esi.lint. Empty
	// means the built-in rules only.
	ExtraDir string
	// Severity maps a rule and the severity it reported to the severity to
	// record. Nil keeps the reported severity.
	Severity func(rule, defaultSeverity string) string
}

// New prepares the built-in rules plus any rules found in opts.ExtraDir.
func New(ctx context.Context, opts Options) (*Engine, error) {
	modules, err := loadModules(opts.ExtraDir)
	if err != nil {
		return nil, err
	}

	regoOpts := append(modules, rego.Query(violationsQuery))
	query, err := rego.New(regoOpts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}

	return &Engine{query: query, severity: opts.Severity}, nil
}

func loadModules(extraDir string) ([]func(*rego.Rego), error) {
	var modules []func(*rego.Rego)

	builtin, err := builtinRules.ReadDir("rules")
	if err != nil {
		return nil, fmt.Errorf("reading built-in rules: %w", err)
	}
	for _, entry := range builtin {
		name := "rules/" + entry.Name()
		content, err := builtinRules.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		modules = append(modules, rego.Module(name, string(content)))
	}

	if extraDir == "" {
		return modules, nil
	}
	files, err := filepath.Glob(filepath.Join(extraDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", extraDir)
	}
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		modules = append(modules, rego.Module(f, string(content)))
	}
	return modules, nil
}

// Evaluate runs the policies against the input data. Violations are sorted
// by address, then rule.
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	result := &Result{Violations: []Violation{}}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				violation := Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Object:   getString(vmap, "object"),
					Index:    getString(vmap, "index"),
					Subindex: getInt(vmap, "subindex"),
					Message:  getString(vmap, "message"),
				}
				if e.severity != nil {
					violation.Severity = e.severity(violation.Rule, violation.Severity)
				}
				if violation.Severity == SeverityOff {
					continue
				}
				result.Violations = append(result.Violations, violation)
			}
		}
	}

	sort.Slice(result.Violations, func(i, j int) bool {
		a, b := result.Violations[i], result.Violations[j]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		if a.Subindex != b.Subindex {
			return a.Subindex < b.Subindex
		}
		return a.Rule < b.Rule
	})
	result.Summary = summarize(result.Violations)
	return result, nil
}

func summarize(violations []Violation) Summary {
	s := Summary{TotalViolations: len(violations)}
	for _, v := range violations {
		switch v.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		default:
			s.Info++
		}
	}
	return s
}

// HasErrors reports whether any violation has error severity.
func (r *Result) HasErrors() bool {
	return r.Summary.Errors > 0
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
