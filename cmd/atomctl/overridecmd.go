package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nrask/ecosystem"
)

func newOverrideCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "override",
		Short: "demonstrate replacing a template's instance via Overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eco, count, countInst, _ := buildDemo(cfg)
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "count before override: %v\n", countInst.Get())

			replacement := &ecosystem.Template{
				Key: "count",
				Factory: func(inj *ecosystem.Injection, params ...any) any {
					return inj.Store(99)
				},
			}
			if err := eco.Overrides([]ecosystem.Override{
				{TemplateKey: "count", Replacement: replacement},
			}); err != nil {
				return err
			}

			// re-resolve through the original template: Overrides swaps
			// the effective template transparently, so GetNode(count)
			// now constructs against replacement.
			newInst, err := eco.GetNode(count)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "count after override: %v\n", newInst.Get())
			return nil
		},
	}
}
