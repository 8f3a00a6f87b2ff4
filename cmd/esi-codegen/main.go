// esi-codegen turns EtherCAT Slave Information (ESI) XML into a flat object
// dictionary and the C sources a slave stack compiles against.
//
// The pipeline per input file:
//  1. etree reads DataTypes and Objects from the ESI XML
//  2. the resolver expands every object into (index, subindex) entries
//  3. duplicate addresses are dropped and shared names disambiguated
//  4. CUE checks the record contract before anything is written
//  5. OPA lint rules report questionable entries
//  6. the C header and objd table are rendered and syntax-checked
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev"

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
	args    cobra.PositionalArgs
}

var log = logrus.New()

func main() {
	ctx := context.Background()

	var verbose, logJSON bool
	rootCmd := &cobra.Command{
		Use:          "esi-codegen [options] COMMAND",
		Short:        "Resolve ESI object dictionaries and generate C sources",
		Version:      version,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(*cobra.Command, []string) {
			configureLogger(verbose, logJSON)
		},
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, rootCmd.UsageString())
		os.Exit(1)
		return nil
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-object debug detail")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON lines")

	commands := []command{
		&cmdGenerate{},
		&cmdResolve{},
		&cmdHeader{},
		&cmdObjd{},
		&cmdDiff{},
		&cmdInit{},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			Args:  help.args,
			RunE: func(_ *cobra.Command, args []string) error {
				os.Exit(cmd.run(ctx, args))
				return nil
			},
		}
		rootCmd.AddCommand(cobraCmd)
		cmd.flags(cobraCmd.Flags())
	}

	if _, err := rootCmd.ExecuteC(); err != nil {
		os.Exit(1)
	}
}

func configureLogger(verbose, logJSON bool) {
	log.SetOutput(os.Stderr)
	if logJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
