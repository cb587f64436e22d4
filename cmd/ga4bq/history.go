package main

import (
	"fmt"
	"time"

	"ga4bq/internal/cache"
	"ga4bq/internal/tui"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var clearHistory bool

	cmd := &cobra.Command{
		Use:   "history [TABLE...]",
		Short: "Show the last load of every table, or of the given project.dataset.table names",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cache.New()
			if err != nil {
				return err
			}
			if clearHistory {
				if len(args) > 0 {
					return fmt.Errorf("--clear forgets every table and takes no arguments")
				}
				return c.ClearLoads()
			}

			records := c.ListLoads()
			if len(args) > 0 {
				records = make([]*cache.LoadRecord, 0, len(args))
				for _, table := range args {
					rec, ok := c.GetLoad(table)
					if !ok {
						return fmt.Errorf("no load recorded for %s", table)
					}
					records = append(records, rec)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(records, time.Now()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearHistory, "clear", false, "Forget all recorded loads")
	return cmd
}
