package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/screensound/catalog/internal/app/usecase"
)

var (
	songName     string
	songYear     int
	songArtistID int64
	songGenres   []string

	filterArtist string
	filterYear   int

	listLimit  int
	listOffset int
)

var songCmd = &cobra.Command{
	Use:   "song",
	Short: "Manage songs",
}

var songAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a song under an artist",
	Long: `Add registers a song. Genres are matched by name ignoring case and
created when they do not exist yet.

Example:
  screensound song add --name "Bohemian Rhapsody" --artist-id 1 --year 1975 --genre Rock --genre Opera`,
	RunE: runSongAdd,
}

var songListCmd = &cobra.Command{
	Use:   "list",
	Short: "List songs",
	Long: `List shows songs, optionally only those of one artist or one release year.

Example:
  screensound song list
  screensound song list --artist queen
  screensound song list --year 1975`,
	RunE: runSongList,
}

func init() {
	songAddCmd.Flags().StringVar(&songName, "name", "", "song name (required)")
	songAddCmd.Flags().IntVar(&songYear, "year", 0, "release year")
	songAddCmd.Flags().Int64Var(&songArtistID, "artist-id", 0, "owning artist id (required)")
	songAddCmd.Flags().StringSliceVar(&songGenres, "genre", nil, "genre name, repeatable")
	_ = songAddCmd.MarkFlagRequired("name")
	_ = songAddCmd.MarkFlagRequired("artist-id")

	songListCmd.Flags().StringVar(&filterArtist, "artist", "", "only songs of this artist")
	songListCmd.Flags().IntVar(&filterYear, "year", 0, "only songs released in this year")
	songListCmd.MarkFlagsMutuallyExclusive("artist", "year")

	for _, c := range []*cobra.Command{songListCmd, artistListCmd, genreListCmd} {
		c.Flags().IntVar(&listLimit, "limit", 0, "page size (default 20)")
		c.Flags().IntVar(&listOffset, "offset", 0, "items to skip")
	}

	songCmd.AddCommand(songAddCmd)
	songCmd.AddCommand(songListCmd)
}

func runSongAdd(cmd *cobra.Command, args []string) error {
	in := usecase.SongInput{Name: songName, ArtistID: songArtistID}
	if cmd.Flags().Changed("year") {
		year := songYear
		in.ReleaseYear = &year
	}
	for _, g := range songGenres {
		in.Genres = append(in.Genres, usecase.GenreInput{Name: g})
	}
	v, err := usecase.NewSongService(store).Create(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("add song: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), v)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created song %d: %s by %s\n", v.ID, v.Name, v.ArtistName)
	return nil
}

func runSongList(cmd *cobra.Command, args []string) error {
	svc := usecase.NewSongService(store)
	var (
		songs []usecase.SongView
		err   error
	)
	switch {
	case filterArtist != "":
		songs, err = svc.ByArtist(cmd.Context(), filterArtist)
	case cmd.Flags().Changed("year"):
		songs, err = svc.ByYear(cmd.Context(), filterYear)
	default:
		var res usecase.ListResult[usecase.SongView]
		res, err = svc.List(cmd.Context(), usecase.ListParams{Limit: listLimit, Offset: listOffset})
		songs = res.Items
	}
	if err != nil {
		return fmt.Errorf("list songs: %w", err)
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), songs)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tYEAR\tARTIST\tGENRES")
	for _, s := range songs {
		year := "-"
		if s.ReleaseYear != nil {
			year = fmt.Sprint(*s.ReleaseYear)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Name, year, s.ArtistName, strings.Join(s.Genres, ", "))
	}
	return w.Flush()
}
