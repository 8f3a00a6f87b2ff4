package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/records"
	"github.com/robert-at-pretension-io/esi-codegen/internal/render"
	"github.com/robert-at-pretension-io/esi-codegen/internal/validator"
)

// renderFlags are shared by the header and objd commands.
type renderFlags struct {
	opts    render.Options
	noCheck bool
}

func (rf *renderFlags) register(flags *pflag.FlagSet) {
	def := render.DefaultOptions()
	flags.StringVar(&rf.opts.StructName, "struct", def.StructName, "C struct type name")
	flags.StringVar(&rf.opts.VarName, "var", def.VarName, "C variable holding the struct")
	flags.StringVar(&rf.opts.TableName, "table", def.TableName, "objd_t table name")
	flags.StringVar(&rf.opts.TestGuard, "guard", def.TestGuard, "macro guarding the standalone-compile preamble")
	flags.BoolVar(&rf.noCheck, "no-check", false, "skip the syntax check of the written file")
}

// loadEntries reads a records file, normalises legacy spellings, checks
// the result against the record contract and maps it back to entries.
func loadEntries(path string) ([]objd.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	recs, err := records.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	recs = records.Normalize(recs)
	v, err := validator.New()
	if err != nil {
		return nil, err
	}
	if err := v.Validate(recs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	entries, err := records.ToEntries(recs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

func (rf *renderFlags) check(ctx context.Context, path string) error {
	if rf.noCheck {
		return nil
	}
	return render.CheckFile(ctx, path)
}
