package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/screensound/catalog/internal/app/usecase"
)

var (
	artistName  string
	artistBio   string
	artistPhoto string
)

var artistCmd = &cobra.Command{
	Use:   "artist",
	Short: "Manage artists",
}

var artistAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an artist",
	Long: `Add registers a new artist.

Example:
  screensound artist add --name "Queen" --bio "British rock band"`,
	RunE: runArtistAdd,
}

var artistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artists",
	RunE:  runArtistList,
}

func init() {
	artistAddCmd.Flags().StringVar(&artistName, "name", "", "artist name (required)")
	artistAddCmd.Flags().StringVar(&artistBio, "bio", "", "short biography")
	artistAddCmd.Flags().StringVar(&artistPhoto, "photo", "", "profile photo URL")
	_ = artistAddCmd.MarkFlagRequired("name")

	artistCmd.AddCommand(artistAddCmd)
	artistCmd.AddCommand(artistListCmd)
}

func runArtistAdd(cmd *cobra.Command, args []string) error {
	v, err := usecase.NewArtistService(store).Create(cmd.Context(), usecase.ArtistInput{
		Name:         artistName,
		Bio:          artistBio,
		ProfilePhoto: artistPhoto,
	})
	if err != nil {
		return fmt.Errorf("add artist: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created artist %d: %s\n", v.ID, v.Name)
	return nil
}

func runArtistList(cmd *cobra.Command, args []string) error {
	res, err := usecase.NewArtistService(store).List(cmd.Context(), usecase.ListParams{Limit: listLimit, Offset: listOffset})
	if err != nil {
		return fmt.Errorf("list artists: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBIO")
	for _, a := range res.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\n", a.ID, a.Name, a.Bio)
	}
	return w.Flush()
}
