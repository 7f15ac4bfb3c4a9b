package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "print the event log ring buffer, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eco, _, _, _ := buildDemo(cfg)

			for _, ev := range eco.EventLogSnapshot() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%v\n",
					ev.ID, ev.Timestamp.Format("15:04:05.000"), ev.Action.Type, ev.Action.Payload)
			}
			return nil
		},
	}
}
