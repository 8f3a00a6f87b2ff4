package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/esi-codegen/internal/esi"
	"github.com/robert-at-pretension-io/esi-codegen/internal/objd"
	"github.com/robert-at-pretension-io/esi-codegen/internal/records"
)

type cmdDiff struct {
	output  string
	indexes []string
}

func (*cmdDiff) help() *commandHelp {
	return &commandHelp{
		usage:   "diff [-o DELTA] PREV_RECORDS NEXT_RECORDS",
		summary: "Show records added and removed between two runs",
		args:    cobra.ExactArgs(2),
	}
}

func (cmd *cmdDiff) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.output, "output", "o", "", "write the delta as JSON instead of printing it")
	flags.StringSliceVar(&cmd.indexes, "index", nil, "only compare these object indexes (hex, e.g. 1018,1C12)")
}

func (cmd *cmdDiff) run(ctx context.Context, argv []string) int {
	prev, err := records.Read(argv[0])
	if err != nil {
		return fail(err)
	}
	next, err := records.Read(argv[1])
	if err != nil {
		return fail(err)
	}

	if len(cmd.indexes) > 0 {
		keep := make(map[string]bool, len(cmd.indexes))
		for _, raw := range cmd.indexes {
			idx, err := esi.ParseIndex("#x" + strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(raw), "0x"), "0X"))
			if err != nil {
				return fail(err)
			}
			keep[objd.FormatIndex(idx)] = true
		}
		prev = records.FilterByIndex(prev, keep)
		next = records.FilterByIndex(next, keep)
	}

	delta := records.ComputeDelta(prev, next)
	if cmd.output != "" {
		if err := records.WriteJSON(cmd.output, delta); err != nil {
			return fail(err)
		}
		fmt.Printf("Created %s (+%d -%d)\n", cmd.output, len(delta.Added), len(delta.Removed))
		return 0
	}

	if delta.Empty() {
		fmt.Println("No changes.")
		return 0
	}
	for _, r := range delta.Removed {
		fmt.Printf("- %s\n", describe(r))
	}
	for _, r := range delta.Added {
		fmt.Printf("+ %s\n", describe(r))
	}
	return 0
}

func describe(r records.Record) string {
	name := r.Name
	if r.SubName != "" {
		name += "." + r.SubName
	}
	return fmt.Sprintf("0x%s:%d %s %s %d bits %s", r.Index, r.Subindex, name, r.Type, r.BitLength, r.Access)
}
