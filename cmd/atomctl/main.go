// Command atomctl is a devtools/demo harness for the ecosystem
// engine: it is not part of the library's public contract (the
// library itself exposes no CLI surface). Each subcommand builds a
// small demo Ecosystem, drives it through a canned scenario, and
// prints whatever view the subcommand is named for.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nrask/ecosystem/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "atomctl",
		Short: "devtools harness for the ecosystem engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or TOML config file (default built-in defaults)")

	root.AddCommand(newDumpCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newOverrideCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
