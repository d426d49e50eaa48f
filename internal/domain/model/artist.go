package model

import "context"

// Artist owns zero or more songs.
type Artist struct {
	identity
	name         string
	Bio          string
	ProfilePhoto string

	songs Collection[*Song]
}

// NewArtist returns a transient artist. name must not be blank.
func NewArtist(name, bio string) (*Artist, error) {
	if err := requireName("artist", name); err != nil {
		return nil, err
	}
	return &Artist{name: name, Bio: bio}, nil
}

func (a *Artist) Name() string { return a.name }

// SetName replaces the name; blank names are rejected.
func (a *Artist) SetName(name string) error {
	if err := requireName("artist", name); err != nil {
		return err
	}
	a.name = name
	return nil
}

// Songs returns the artist's songs, fetching them on first access.
func (a *Artist) Songs(ctx context.Context) ([]*Song, error) { return a.songs.Get(ctx) }

// BindSongs installs the on-demand loader for Songs.
func (a *Artist) BindSongs(load Loader[*Song]) { a.songs.Bind(load) }

// Settle records whether s belongs to a after a commit.
func (a *Artist) Settle(s *Song, owns bool) { a.songs.settle(s, owns) }

func (a *Artist) Forget(e Entity) {
	if s, ok := e.(*Song); ok {
		a.songs.Drop(s)
	}
}
