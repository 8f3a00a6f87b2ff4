package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/esi-codegen/internal/config"
)

type cmdInit struct {
	force bool
}

func (*cmdInit) help() *commandHelp {
	return &commandHelp{
		usage:   "init",
		summary: "Create an esi_codegen.json configuration file",
		args:    cobra.NoArgs,
	}
}

func (cmd *cmdInit) flags(flags *pflag.FlagSet) {
	flags.BoolVarP(&cmd.force, "force", "f", false, "overwrite an existing file without asking")
}

func (cmd *cmdInit) run(ctx context.Context, argv []string) int {
	configPath := "esi_codegen.json"

	if _, err := os.Stat(configPath); err == nil && !cmd.force {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return 0
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return fail(fmt.Errorf("creating config: %w", err))
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Input and exclude patterns")
	fmt.Println("  - Output directory and generated artifacts")
	fmt.Println("  - C struct, variable and table names")
	fmt.Println("  - Lint rule severities")
	return 0
}
