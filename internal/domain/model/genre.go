package model

import "context"

// Genre is associated with songs through the song_genres join.
// It has no ownership dependency on any song.
type Genre struct {
	identity
	name        string
	Description string

	songs Collection[*Song]
}

// NewGenre returns a transient genre. name must not be blank.
func NewGenre(name, description string) (*Genre, error) {
	if err := requireName("genre", name); err != nil {
		return nil, err
	}
	return &Genre{name: name, Description: description}, nil
}

func (g *Genre) Name() string { return g.name }

// SetName replaces the name; blank names are rejected.
func (g *Genre) SetName(name string) error {
	if err := requireName("genre", name); err != nil {
		return err
	}
	g.name = name
	return nil
}

// Songs returns the reverse side of the association, fetched on first access.
func (g *Genre) Songs(ctx context.Context) ([]*Song, error) { return g.songs.Get(ctx) }

// BindSongs installs the on-demand loader for Songs.
func (g *Genre) BindSongs(load Loader[*Song]) { g.songs.Bind(load) }

// AddSong associates s with g. Equivalent to s.AddGenre(g).
func (g *Genre) AddSong(s *Song) {
	if s != nil {
		s.AddGenre(g)
	}
}

// RemoveSong dissociates s from g. Equivalent to s.RemoveGenre(g).
func (g *Genre) RemoveSong(s *Song) {
	if s != nil {
		s.RemoveGenre(g)
	}
}

func (g *Genre) Forget(e Entity) {
	if s, ok := e.(*Song); ok {
		g.songs.Drop(s)
	}
}
