package model

import "context"

// GenreLink is a join-table change recorded on the owning song until the next flush.
type GenreLink struct {
	Genre   *Genre
	Removed bool
}

// Song belongs to exactly one artist and carries zero or more genres.
type Song struct {
	identity
	name        string
	ReleaseYear *int

	artistID int64
	artist   Reference[*Artist]
	genres   Collection[*Genre]
	links    []GenreLink
}

// NewSong returns a transient song. The artist must be set before it is saved.
func NewSong(name string) (*Song, error) {
	if err := requireName("song", name); err != nil {
		return nil, err
	}
	return &Song{name: name}, nil
}

func (s *Song) Name() string { return s.name }

// SetName replaces the name; blank names are rejected.
func (s *Song) SetName(name string) error {
	if err := requireName("song", name); err != nil {
		return err
	}
	s.name = name
	return nil
}

// ArtistID returns the owning artist's identity, preferring a loaded reference.
func (s *Song) ArtistID() int64 {
	if a, ok := s.artist.Peek(); ok && a != nil && a.ID() != 0 {
		return a.ID()
	}
	return s.artistID
}

// SetArtistID points the song at an artist by identity. Any loaded reference is dropped.
func (s *Song) SetArtistID(id int64) {
	if prev, ok := s.artist.Peek(); ok && prev != nil {
		prev.songs.remove(s)
	}
	s.artistID = id
	s.artist.Reset()
}

// SetArtist points the song at a and adds the song to a's in-memory collection.
func (s *Song) SetArtist(a *Artist) {
	if prev, ok := s.artist.Peek(); ok && prev != nil && prev != a {
		prev.songs.remove(s)
	}
	if a == nil {
		s.artistID = 0
		s.artist.Reset()
		return
	}
	s.artistID = a.ID()
	s.artist.Set(a)
	a.songs.add(s)
}

// ArtistRef returns the cached artist reference without loading it.
func (s *Song) ArtistRef() (*Artist, bool) {
	a, ok := s.artist.Peek()
	return a, ok && a != nil
}

// Artist returns the owning artist, fetching it on first access.
func (s *Song) Artist(ctx context.Context) (*Artist, error) { return s.artist.Get(ctx) }

// BindArtist installs the on-demand loader for Artist.
func (s *Song) BindArtist(load func(ctx context.Context) (*Artist, error)) { s.artist.Bind(load) }

// Genres returns the song's genres, fetching them on first access.
func (s *Song) Genres(ctx context.Context) ([]*Genre, error) { return s.genres.Get(ctx) }

// BindGenres installs the on-demand loader for Genres.
func (s *Song) BindGenres(load Loader[*Genre]) { s.genres.Bind(load) }

// AddGenre associates g with s on both sides. The join row is written on the next flush.
func (s *Song) AddGenre(g *Genre) {
	if g == nil {
		return
	}
	s.genres.add(g)
	g.songs.add(s)
	s.links = append(s.links, GenreLink{Genre: g})
}

// RemoveGenre dissociates g from s on both sides.
func (s *Song) RemoveGenre(g *Genre) {
	if g == nil {
		return
	}
	s.genres.remove(g)
	g.songs.remove(s)
	s.links = append(s.links, GenreLink{Genre: g, Removed: true})
}

// PendingLinks returns join changes not yet flushed, oldest first.
func (s *Song) PendingLinks() []GenreLink {
	out := make([]GenreLink, len(s.links))
	copy(out, s.links)
	return out
}

// ClearPendingLinks drops the first n pending links after they were flushed.
func (s *Song) ClearPendingLinks(n int) {
	if n >= len(s.links) {
		s.links = nil
		return
	}
	s.links = append([]GenreLink(nil), s.links[n:]...)
}

func (s *Song) Forget(e Entity) {
	switch v := e.(type) {
	case *Genre:
		s.genres.Drop(v)
		links := s.links[:0]
		for _, l := range s.links {
			if l.Genre != v {
				links = append(links, l)
			}
		}
		s.links = links
	case *Artist:
		if a, ok := s.artist.Peek(); ok && a == v {
			s.artist.Reset()
		}
	}
}
