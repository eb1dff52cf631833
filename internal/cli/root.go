// Package cli wires configuration, logging and the service packages into the
// pdfconvert command.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"pdfconvert/internal/config"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "pdfconvert",
		Short:        "Convert PDF files to Word documents and spreadsheets",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging with source locations")

	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(convertCmd(opts))
	cmd.AddCommand(versionCmd())

	return cmd
}

// load reads the configuration and installs the default logger
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	setupLogger(os.Stderr, cfg.Log, o.debug)

	return cfg, nil
}
