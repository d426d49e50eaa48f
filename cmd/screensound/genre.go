package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/screensound/catalog/internal/app/usecase"
)

var (
	genreName string
	genreDesc string
)

var genreCmd = &cobra.Command{
	Use:   "genre",
	Short: "Manage genres",
}

var genreAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a genre",
	RunE:  runGenreAdd,
}

var genreListCmd = &cobra.Command{
	Use:   "list",
	Short: "List genres",
	RunE:  runGenreList,
}

func init() {
	genreAddCmd.Flags().StringVar(&genreName, "name", "", "genre name (required)")
	genreAddCmd.Flags().StringVar(&genreDesc, "description", "", "genre description")
	_ = genreAddCmd.MarkFlagRequired("name")

	genreCmd.AddCommand(genreAddCmd)
	genreCmd.AddCommand(genreListCmd)
}

func runGenreAdd(cmd *cobra.Command, args []string) error {
	v, err := usecase.NewGenreService(store).Create(cmd.Context(), usecase.GenreInput{Name: genreName, Description: genreDesc})
	if err != nil {
		return fmt.Errorf("add genre: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created genre %d: %s\n", v.ID, v.Name)
	return nil
}

func runGenreList(cmd *cobra.Command, args []string) error {
	res, err := usecase.NewGenreService(store).List(cmd.Context(), usecase.ListParams{Limit: listLimit, Offset: listOffset})
	if err != nil {
		return fmt.Errorf("list genres: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, g := range res.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Name, g.Description)
	}
	return w.Flush()
}
