package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"petsoft/internal/domain/pets"
	"petsoft/internal/petstate"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var (
		asJSON bool
		search string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the pets currently checked in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := opts.gateway()
			if err != nil {
				return err
			}
			items, err := gw.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list pets: %w", err)
			}
			items = pets.FilterByName(items, search)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			printPets(cmd.OutOrStdout(), items, nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only pets whose name contains this text (case-insensitive)")
	return cmd
}

// printPets imprime la tabla; optimistic marca las filas que todavía no confirmó el servidor.
func printPets(w io.Writer, items []pets.Pet, optimistic func(id string) bool) {
	cyan.Fprintf(w, "%d current guests\n", len(items))
	if len(items) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tOWNER\tAGE\t")
	for _, p := range items {
		mark := ""
		if optimistic != nil && optimistic(p.ID) {
			mark = "(saving…)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.OwnerName, p.Age, mark)
	}
	_ = tw.Flush()
}

func printView(w io.Writer, v petstate.View) {
	printPets(w, v.Pets, v.IsOptimistic)
}
