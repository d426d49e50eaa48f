package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
)

// CatalogModel registers artists, genres and songs, parents first.
func CatalogModel() *Model {
	m := NewModel()
	Register(m, artistMapping())
	Register(m, genreMapping())
	Register(m, songMapping())
	return m
}

func artistMapping() Mapping[*model.Artist] {
	return Mapping[*model.Artist]{
		Table:   "artists",
		Columns: []string{"name", "bio", "profile_photo"},
		Scan: func(sc Scanner) (*model.Artist, error) {
			var (
				id               int64
				name, bio, photo string
			)
			if err := sc.Scan(&id, &name, &bio, &photo); err != nil {
				return nil, err
			}
			a, err := model.NewArtist(name, bio)
			if err != nil {
				return nil, err
			}
			a.ProfilePhoto = photo
			return a, a.AssignID(id)
		},
		Values: func(_ *Writer, a *model.Artist) ([]any, error) {
			return []any{a.Name(), a.Bio, a.ProfilePhoto}, nil
		},
		Bind: func(pc *Context, a *model.Artist) {
			a.BindSongs(func(ctx context.Context) ([]*model.Song, error) {
				songs, err := mappingOf[*model.Song](pc.model)
				if err != nil {
					return nil, err
				}
				return query(ctx, pc, songs, "", "t.artist_id = ?", a.ID())
			})
		},
		Cascade: func(a *model.Artist, candidates []model.Entity) []model.Entity {
			var out []model.Entity
			for _, c := range candidates {
				if s, ok := c.(*model.Song); ok && s.ArtistID() == a.ID() {
					out = append(out, s)
				}
			}
			return out
		},
	}
}

func genreMapping() Mapping[*model.Genre] {
	return Mapping[*model.Genre]{
		Table:   "genres",
		Columns: []string{"name", "description"},
		Scan: func(sc Scanner) (*model.Genre, error) {
			var (
				id                int64
				name, description string
			)
			if err := sc.Scan(&id, &name, &description); err != nil {
				return nil, err
			}
			g, err := model.NewGenre(name, description)
			if err != nil {
				return nil, err
			}
			return g, g.AssignID(id)
		},
		Values: func(_ *Writer, g *model.Genre) ([]any, error) {
			return []any{g.Name(), g.Description}, nil
		},
		Bind: func(pc *Context, g *model.Genre) {
			g.BindSongs(func(ctx context.Context) ([]*model.Song, error) {
				songs, err := mappingOf[*model.Song](pc.model)
				if err != nil {
					return nil, err
				}
				return query(ctx, pc, songs, "JOIN song_genres sg ON sg.song_id = t.id", "sg.genre_id = ?", g.ID())
			})
		},
	}
}

func songMapping() Mapping[*model.Song] {
	return Mapping[*model.Song]{
		Table:   "songs",
		Columns: []string{"name", "release_year", "artist_id"},
		Scan: func(sc Scanner) (*model.Song, error) {
			var (
				id, artistID int64
				name         string
				year         sql.NullInt64
			)
			if err := sc.Scan(&id, &name, &year, &artistID); err != nil {
				return nil, err
			}
			s, err := model.NewSong(name)
			if err != nil {
				return nil, err
			}
			if year.Valid {
				y := int(year.Int64)
				s.ReleaseYear = &y
			}
			s.SetArtistID(artistID)
			return s, s.AssignID(id)
		},
		Values: func(w *Writer, s *model.Song) ([]any, error) {
			artistID := s.ArtistID()
			if a, ok := s.ArtistRef(); ok && artistID == 0 {
				artistID = w.IDOf(a)
			}
			if artistID == 0 {
				return nil, fmt.Errorf("%w: song %q has no saved artist", repository.ErrPersistence, s.Name())
			}
			var year any
			if s.ReleaseYear != nil {
				year = int64(*s.ReleaseYear)
			}
			return []any{s.Name(), year, artistID}, nil
		},
		Bind: func(pc *Context, s *model.Song) {
			s.BindArtist(func(ctx context.Context) (*model.Artist, error) {
				artists, err := mappingOf[*model.Artist](pc.model)
				if err != nil {
					return nil, err
				}
				a, ok, err := find(ctx, pc, artists, s.ArtistID())
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, fmt.Errorf("%w: artist id=%d", repository.ErrNotFound, s.ArtistID())
				}
				return a, nil
			})
			s.BindGenres(func(ctx context.Context) ([]*model.Genre, error) {
				genres, err := mappingOf[*model.Genre](pc.model)
				if err != nil {
					return nil, err
				}
				return query(ctx, pc, genres, "JOIN song_genres sg ON sg.genre_id = t.id", "sg.song_id = ?", s.ID())
			})
		},
		Related: func(s *model.Song) []model.Entity {
			var out []model.Entity
			for _, l := range s.PendingLinks() {
				if !l.Removed && l.Genre != nil {
					out = append(out, l.Genre)
				}
			}
			return out
		},
		Pending: func(s *model.Song) bool { return len(s.PendingLinks()) > 0 },
		AfterSave: func(ctx context.Context, w *Writer, s *model.Song) (func(), error) {
			links := s.PendingLinks()
			songID := w.IDOf(s)
			for _, l := range links {
				genreID := w.IDOf(l.Genre)
				if genreID == 0 && l.Removed {
					continue
				}
				if genreID == 0 {
					return nil, fmt.Errorf("%w: genre %q is not saved", repository.ErrPersistence, l.Genre.Name())
				}
				var err error
				if l.Removed {
					_, err = w.Exec(ctx, "DELETE FROM song_genres WHERE song_id = ? AND genre_id = ?", songID, genreID)
				} else {
					_, err = w.Exec(ctx, "INSERT OR IGNORE INTO song_genres (song_id, genre_id) VALUES (?, ?)", songID, genreID)
				}
				if err != nil {
					return nil, flushErr("song_genres", err)
				}
			}
			return func() { s.ClearPendingLinks(len(links)) }, nil
		},
		// the owning artist may be tracked with Songs loaded, or the song may have moved away from one
		Fixup: func(s *model.Song, live []model.Entity) {
			for _, e := range live {
				if a, ok := e.(*model.Artist); ok {
					a.Settle(s, a.ID() == s.ArtistID())
				}
			}
		},
	}
}
