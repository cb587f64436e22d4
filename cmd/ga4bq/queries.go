package main

import (
	"fmt"

	"ga4bq/internal/query"
	"ga4bq/internal/tui"

	"github.com/spf13/cobra"
)

func newQueriesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queries [QUERY...]",
		Short: "List the available queries and the columns they load",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(opts)
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				names = reg.Names()
			}

			descriptors := make([]*query.Descriptor, len(names))
			for i, name := range names {
				d, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				descriptors[i] = d
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderQueries(descriptors))
			return nil
		},
	}
}
