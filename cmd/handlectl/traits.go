package main

import (
	"os"

	"github.com/gcforge/handlekit/pkg/diag"
	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newTraitsCmd())
}

func newTraitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "traits",
		Short: "Print the handle type model",
		Long: `The traits command lists every handle type together with whether its
slot carries a secondary extra-info word.

Example:
  handlectl traits
  handlectl traits --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut {
				type trait struct {
					Type      string `json:"type"`
					ExtraInfo bool   `json:"extraInfo"`
				}
				var out []trait
				for _, t := range gc.AllTypes() {
					out = append(out, trait{Type: t.String(), ExtraInfo: t.HasExtraInfo()})
				}
				return printJSON(out)
			}
			return diag.TraitTable(os.Stdout)
		},
	}
}
