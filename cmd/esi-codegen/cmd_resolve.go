package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/esi-codegen/internal/pipeline"
	"github.com/robert-at-pretension-io/esi-codegen/internal/records"
	"github.com/robert-at-pretension-io/esi-codegen/internal/validator"
)

type cmdResolve struct {
	output string
}

func (*cmdResolve) help() *commandHelp {
	return &commandHelp{
		usage:   "resolve [-o RECORDS] ESI_FILE",
		summary: "Resolve one ESI file into its compact JSON records",
		args:    cobra.ExactArgs(1),
	}
}

func (cmd *cmdResolve) flags(flags *pflag.FlagSet) {
	flags.StringVarP(&cmd.output, "output", "o", "", "records file (default <ESI_FILE>.json)")
}

func (cmd *cmdResolve) run(ctx context.Context, argv []string) int {
	input := argv[0]
	output := cmd.output
	if output == "" {
		output = input + ".json"
	}

	f, err := os.Open(input)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	entries, warnings, err := pipeline.Resolve(f, log.WithField("file", input))
	if err != nil {
		return fail(fmt.Errorf("%s: %w", input, err))
	}
	recs := records.FromEntries(entries)

	v, err := validator.New()
	if err != nil {
		return fail(err)
	}
	if err := v.Validate(recs); err != nil {
		for _, detail := range v.ValidationErrors(recs) {
			fmt.Fprintf(os.Stderr, "  %s\n", detail)
		}
		return fail(err)
	}

	if err := records.Write(output, recs); err != nil {
		return fail(err)
	}
	for _, w := range warnings {
		fmt.Printf("%s\n", w)
	}
	fmt.Printf("Created %s (%d entries)\n", output, len(recs))
	return 0
}
