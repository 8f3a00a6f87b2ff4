package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/esi-codegen/internal/render"
)

type cmdHeader struct {
	render renderFlags
}

func (*cmdHeader) help() *commandHelp {
	return &commandHelp{
		usage:   "header RECORDS OUT.h",
		summary: "Render the C struct declaration for a records file",
		args:    cobra.ExactArgs(2),
	}
}

func (cmd *cmdHeader) flags(flags *pflag.FlagSet) {
	cmd.render.register(flags)
}

func (cmd *cmdHeader) run(ctx context.Context, argv []string) int {
	entries, err := loadEntries(argv[0])
	if err != nil {
		return fail(err)
	}

	var buf bytes.Buffer
	if err := render.WriteHeader(&buf, entries, cmd.render.opts); err != nil {
		return fail(err)
	}
	if err := os.WriteFile(argv[1], buf.Bytes(), 0o644); err != nil {
		return fail(err)
	}
	if err := cmd.render.check(ctx, argv[1]); err != nil {
		return fail(err)
	}
	fmt.Printf("Created %s\n", argv[1])
	return 0
}

type cmdObjd struct {
	render renderFlags
	append bool
}

func (*cmdObjd) help() *commandHelp {
	return &commandHelp{
		usage:   "objd [--append] RECORDS OUT.h",
		summary: "Render the objd_t table for a records file",
		args:    cobra.ExactArgs(2),
	}
}

func (cmd *cmdObjd) flags(flags *pflag.FlagSet) {
	cmd.render.register(flags)
	flags.BoolVarP(&cmd.append, "append", "a", false, "append to OUT.h instead of replacing it")
}

func (cmd *cmdObjd) run(ctx context.Context, argv []string) int {
	entries, err := loadEntries(argv[0])
	if err != nil {
		return fail(err)
	}

	var buf bytes.Buffer
	if err := render.WriteTable(&buf, entries, cmd.render.opts); err != nil {
		return fail(err)
	}

	mode := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if cmd.append {
		mode = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(argv[1], mode, 0o644)
	if err != nil {
		return fail(err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fail(err)
	}
	if err := f.Close(); err != nil {
		return fail(err)
	}

	if err := cmd.render.check(ctx, argv[1]); err != nil {
		return fail(err)
	}
	if cmd.append {
		fmt.Printf("Appended objd table to %s\n", argv[1])
	} else {
		fmt.Printf("Created %s\n", argv[1])
	}
	return 0
}
