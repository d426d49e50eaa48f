package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
	"github.com/screensound/catalog/internal/infra/datastore"
)

type SongView struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	ReleaseYear *int     `json:"release_year"`
	ArtistID    int64    `json:"artist_id"`
	ArtistName  string   `json:"artist_name"`
	Genres      []string `json:"genres"`
}

type GenreInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SongInput creates or edits a song. On update a zero ArtistID keeps the
// current artist and nil Genres keeps the current genres.
type SongInput struct {
	Name        string       `json:"name"`
	ReleaseYear *int         `json:"release_year"`
	ArtistID    int64        `json:"artist_id"`
	Genres      []GenreInput `json:"genres"`
}

func songView(ctx context.Context, s *model.Song) (SongView, error) {
	a, err := s.Artist(ctx)
	if err != nil {
		return SongView{}, err
	}
	genres, err := s.Genres(ctx)
	if err != nil {
		return SongView{}, err
	}
	v := SongView{
		ID:          s.ID(),
		Name:        s.Name(),
		ReleaseYear: s.ReleaseYear,
		ArtistID:    a.ID(),
		ArtistName:  a.Name(),
		Genres:      make([]string, len(genres)),
	}
	for i, g := range genres {
		v.Genres[i] = g.Name()
	}
	return v, nil
}

func songViews(ctx context.Context, songs []*model.Song) ([]SongView, error) {
	out := make([]SongView, 0, len(songs))
	for _, s := range songs {
		v, err := songView(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type SongService struct {
	ds datastore.DataStore
}

func NewSongService(ds datastore.DataStore) *SongService {
	return &SongService{ds: ds}
}

func (s *SongService) List(ctx context.Context, p ListParams) (ListResult[SongView], error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (ListResult[SongView], error) {
		all, err := datastore.NewRepository[*model.Song](pc).List(ctx)
		if err != nil {
			return ListResult[SongView]{}, err
		}
		page := paginate(all, p)
		items, err := songViews(ctx, page.Items)
		if err != nil {
			return ListResult[SongView]{}, err
		}
		return ListResult[SongView]{Items: items, Total: page.Total, NextOffset: page.NextOffset}, nil
	})
}

func (s *SongService) FindByName(ctx context.Context, name string) (SongView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (SongView, error) {
		song, err := findOne(ctx, datastore.NewRepository[*model.Song](pc), repository.ByName[*model.Song](name), "song "+name)
		if err != nil {
			return SongView{}, err
		}
		return songView(ctx, song)
	})
}

// ByArtist lists the songs of the artist with the given name.
func (s *SongService) ByArtist(ctx context.Context, artistName string) ([]SongView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) ([]SongView, error) {
		a, err := findOne(ctx, datastore.NewRepository[*model.Artist](pc), repository.ByName[*model.Artist](artistName), "artist "+artistName)
		if err != nil {
			return nil, err
		}
		songs, err := a.Songs(ctx)
		if err != nil {
			return nil, err
		}
		return songViews(ctx, songs)
	})
}

// ByYear lists the songs released in year.
func (s *SongService) ByYear(ctx context.Context, year int) ([]SongView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) ([]SongView, error) {
		songs, err := datastore.NewRepository[*model.Song](pc).FindMany(ctx, func(s *model.Song) bool {
			return s.ReleaseYear != nil && *s.ReleaseYear == year
		})
		if err != nil {
			return nil, err
		}
		return songViews(ctx, songs)
	})
}

// Create adds a song under an existing artist. Genres are matched by name,
// ignoring case; unknown ones are created with the song.
func (s *SongService) Create(ctx context.Context, in SongInput) (SongView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (SongView, error) {
		song, err := model.NewSong(in.Name)
		if err != nil {
			return SongView{}, err
		}
		song.ReleaseYear = in.ReleaseYear
		song.SetArtistID(in.ArtistID)
		genres, err := resolveGenres(ctx, datastore.NewRepository[*model.Genre](pc), in.Genres)
		if err != nil {
			return SongView{}, err
		}
		for _, g := range genres {
			song.AddGenre(g)
		}
		if err := datastore.NewRepository[*model.Song](pc).Add(ctx, song); err != nil {
			return SongView{}, err
		}
		return songView(ctx, song)
	})
}

func (s *SongService) Update(ctx context.Context, id int64, in SongInput) (SongView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (SongView, error) {
		songs := datastore.NewRepository[*model.Song](pc)
		song, err := findOne(ctx, songs, repository.ByID[*model.Song](id), fmt.Sprintf("song id=%d", id))
		if err != nil {
			return SongView{}, err
		}
		if err := song.SetName(in.Name); err != nil {
			return SongView{}, err
		}
		song.ReleaseYear = in.ReleaseYear
		if in.ArtistID != 0 && in.ArtistID != song.ArtistID() {
			a, err := findOne(ctx, datastore.NewRepository[*model.Artist](pc), repository.ByID[*model.Artist](in.ArtistID), fmt.Sprintf("artist id=%d", in.ArtistID))
			if err != nil {
				return SongView{}, err
			}
			song.SetArtist(a)
		}
		if in.Genres != nil {
			if err := replaceGenres(ctx, pc, song, in.Genres); err != nil {
				return SongView{}, err
			}
		}
		if err := songs.Update(ctx, song); err != nil {
			return SongView{}, err
		}
		return songView(ctx, song)
	})
}

func (s *SongService) Delete(ctx context.Context, id int64) error {
	_, err := inContext(ctx, s.ds, func(pc *datastore.Context) (struct{}, error) {
		songs := datastore.NewRepository[*model.Song](pc)
		song, err := findOne(ctx, songs, repository.ByID[*model.Song](id), fmt.Sprintf("song id=%d", id))
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, songs.Delete(ctx, song)
	})
	return err
}

// replaceGenres makes the song's genres exactly the named ones.
func replaceGenres(ctx context.Context, pc *datastore.Context, song *model.Song, in []GenreInput) error {
	want, err := resolveGenres(ctx, datastore.NewRepository[*model.Genre](pc), in)
	if err != nil {
		return err
	}
	current, err := song.Genres(ctx)
	if err != nil {
		return err
	}
	keep := map[*model.Genre]bool{}
	for _, g := range want {
		keep[g] = true
	}
	for _, g := range current {
		if !keep[g] {
			song.RemoveGenre(g)
		}
	}
	for _, g := range want {
		song.AddGenre(g)
	}
	return nil
}

// resolveGenres returns one genre per distinct name (case-insensitive),
// reusing stored genres and creating transient ones for new names.
func resolveGenres(ctx context.Context, genres repository.Repository[*model.Genre], in []GenreInput) ([]*model.Genre, error) {
	if len(in) == 0 {
		return nil, nil
	}
	stored, err := genres.List(ctx)
	if err != nil {
		return nil, err
	}
	byName := map[string]*model.Genre{}
	for _, g := range stored {
		key := strings.ToLower(strings.TrimSpace(g.Name()))
		if _, dup := byName[key]; !dup {
			byName[key] = g
		}
	}
	var out []*model.Genre
	seen := map[string]bool{}
	for _, gi := range in {
		key := strings.ToLower(strings.TrimSpace(gi.Name))
		if seen[key] {
			continue
		}
		seen[key] = true
		g, ok := byName[key]
		if !ok {
			g, err = model.NewGenre(strings.TrimSpace(gi.Name), gi.Description)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, g)
	}
	return out, nil
}
