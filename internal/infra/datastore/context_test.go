package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
)

func openTestStore(t *testing.T) DataStore {
	t.Helper()
	ds, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "catalog.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func newTestContext(t *testing.T, ds DataStore) *Context {
	t.Helper()
	pc, err := ds.NewContext(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	return pc
}

func mustArtist(t *testing.T, name string) *model.Artist {
	t.Helper()
	a, err := model.NewArtist(name, name+" bio")
	require.NoError(t, err)
	return a
}

func mustSong(t *testing.T, name string, a *model.Artist) *model.Song {
	t.Helper()
	s, err := model.NewSong(name)
	require.NoError(t, err)
	s.SetArtist(a)
	return s
}

func mustGenre(t *testing.T, name string) *model.Genre {
	t.Helper()
	g, err := model.NewGenre(name, "")
	require.NoError(t, err)
	return g
}

func names[T model.Entity](items []T) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.Name()
	}
	return out
}

func TestAddAssignsIdentityAndLists(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	pc := newTestContext(t, ds)
	artists := NewRepository[*model.Artist](pc)

	a := mustArtist(t, "Queen")
	a.ProfilePhoto = "queen.png"
	require.NoError(t, artists.Add(ctx, a))
	assert.NotZero(t, a.ID())

	all, err := artists.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Same(t, a, all[0])

	// a second context reads the stored values into a fresh instance
	other := NewRepository[*model.Artist](newTestContext(t, ds))
	got, ok, err := other.FindOne(ctx, repository.ByID[*model.Artist](a.ID()))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotSame(t, a, got)
	assert.Equal(t, a.ID(), got.ID())
	assert.Equal(t, "Queen", got.Name())
	assert.Equal(t, "Queen bio", got.Bio)
	assert.Equal(t, "queen.png", got.ProfilePhoto)
}

func TestAddRejectsAssignedIdentity(t *testing.T) {
	pc := newTestContext(t, openTestStore(t))
	a := mustArtist(t, "Queen")
	require.NoError(t, a.AssignID(3))

	err := NewRepository[*model.Artist](pc).Add(context.Background(), a)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestIdentitiesAreDistinctAndIncreasing(t *testing.T) {
	ctx := context.Background()
	artists := NewRepository[*model.Artist](newTestContext(t, openTestStore(t)))

	a, b := mustArtist(t, "Queen"), mustArtist(t, "Blur")
	require.NoError(t, artists.Add(ctx, a))
	require.NoError(t, artists.Add(ctx, b))
	assert.Greater(t, b.ID(), a.ID())

	// deleted identities are not reused
	require.NoError(t, artists.Delete(ctx, b))
	c := mustArtist(t, "Oasis")
	require.NoError(t, artists.Add(ctx, c))
	assert.Greater(t, c.ID(), b.ID())
}

func TestUpdateChangesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	artists := NewRepository[*model.Artist](newTestContext(t, ds))

	a, b := mustArtist(t, "Queen"), mustArtist(t, "Blur")
	require.NoError(t, artists.Add(ctx, a))
	require.NoError(t, artists.Add(ctx, b))

	require.NoError(t, a.SetName("Queen + Adam Lambert"))
	a.Bio = "touring"
	require.NoError(t, artists.Update(ctx, a))

	fresh := NewRepository[*model.Artist](newTestContext(t, ds))
	all, err := fresh.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"Queen + Adam Lambert", "Blur"}, names(all))
	assert.Equal(t, "touring", all[0].Bio)
	assert.Equal(t, "Blur bio", all[1].Bio)
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	artists := NewRepository[*model.Artist](newTestContext(t, openTestStore(t)))

	transient := mustArtist(t, "Nobody")
	require.ErrorIs(t, artists.Update(ctx, transient), repository.ErrNotFound)

	detached := mustArtist(t, "Ghost")
	require.NoError(t, detached.AssignID(999))
	require.ErrorIs(t, artists.Update(ctx, detached), repository.ErrNotFound)

	// the failed update is not retried by later flushes
	require.NoError(t, artists.Add(ctx, mustArtist(t, "Queen")))
}

func TestUpdateWithDetachedInstanceReplacesTracked(t *testing.T) {
	ctx := context.Background()
	pc := newTestContext(t, openTestStore(t))
	artists := NewRepository[*model.Artist](pc)

	a := mustArtist(t, "Queen")
	require.NoError(t, artists.Add(ctx, a))

	detached := mustArtist(t, "Queen II")
	require.NoError(t, detached.AssignID(a.ID()))
	require.NoError(t, artists.Update(ctx, detached))

	all, err := artists.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Same(t, detached, all[0])
	assert.Equal(t, "Queen II", all[0].Name())
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	artists := NewRepository[*model.Artist](newTestContext(t, openTestStore(t)))

	a, b := mustArtist(t, "Queen"), mustArtist(t, "Blur")
	require.NoError(t, artists.Add(ctx, a))
	require.NoError(t, artists.Add(ctx, b))

	require.NoError(t, artists.Delete(ctx, a))

	_, ok, err := artists.FindOne(ctx, repository.ByID[*model.Artist](a.ID()))
	require.NoError(t, err)
	assert.False(t, ok)
	all, err := artists.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Blur"}, names(all))

	require.ErrorIs(t, artists.Delete(ctx, a), repository.ErrNotFound)
	require.ErrorIs(t, artists.Delete(ctx, mustArtist(t, "Never saved")), repository.ErrNotFound)
}

func TestDeleteArtistCascadesToSongs(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	pc := newTestContext(t, ds)
	artists := NewRepository[*model.Artist](pc)
	songs := NewRepository[*model.Song](pc)
	genres := NewRepository[*model.Genre](pc)

	queen, blur := mustArtist(t, "Queen"), mustArtist(t, "Blur")
	require.NoError(t, artists.Add(ctx, queen))
	require.NoError(t, artists.Add(ctx, blur))
	rock := mustGenre(t, "Rock")
	require.NoError(t, genres.Add(ctx, rock))

	s1, s2 := mustSong(t, "Bohemian Rhapsody", queen), mustSong(t, "Somebody to Love", queen)
	s3 := mustSong(t, "Song 2", blur)
	s1.AddGenre(rock)
	s3.AddGenre(rock)
	for _, s := range []*model.Song{s1, s2, s3} {
		require.NoError(t, songs.Add(ctx, s))
	}

	rockSongs, err := rock.Songs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Bohemian Rhapsody", "Song 2"}, names(rockSongs))

	require.NoError(t, artists.Delete(ctx, queen))

	left, err := songs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Song 2"}, names(left))

	rockSongs, err = rock.Songs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Song 2"}, names(rockSongs))

	// the store agrees
	fresh := newTestContext(t, ds)
	stored, err := NewRepository[*model.Song](fresh).List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Song 2"}, names(stored))
	g, ok, err := NewRepository[*model.Genre](fresh).FindOne(ctx, repository.ByName[*model.Genre]("rock"))
	require.NoError(t, err)
	require.True(t, ok)
	stillRock, err := g.Songs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Song 2"}, names(stillRock))
}

func TestAssociateGenreBothSides(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	pc := newTestContext(t, ds)

	a := mustArtist(t, "A")
	require.NoError(t, NewRepository[*model.Artist](pc).Add(ctx, a))
	s1 := mustSong(t, "S1", a)
	require.NoError(t, NewRepository[*model.Song](pc).Add(ctx, s1))
	rock := mustGenre(t, "Rock")
	require.NoError(t, NewRepository[*model.Genre](pc).Add(ctx, rock))

	rock.AddSong(s1)
	require.NoError(t, pc.SaveChanges(ctx))
	assert.Empty(t, s1.PendingLinks())

	fresh := newTestContext(t, ds)
	song, ok, err := NewRepository[*model.Song](fresh).FindOne(ctx, repository.ByName[*model.Song]("S1"))
	require.NoError(t, err)
	require.True(t, ok)
	songGenres, err := song.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rock"}, names(songGenres))

	genre, ok, err := NewRepository[*model.Genre](fresh).FindOne(ctx, repository.ByName[*model.Genre]("Rock"))
	require.NoError(t, err)
	require.True(t, ok)
	genreSongs, err := genre.Songs(ctx)
	require.NoError(t, err)
	require.Len(t, genreSongs, 1)
	assert.Same(t, song, genreSongs[0])
	assert.Same(t, genre, songGenres[0])
}

func TestRemoveGenreDeletesJoinRow(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	pc := newTestContext(t, ds)

	a := mustArtist(t, "A")
	require.NoError(t, NewRepository[*model.Artist](pc).Add(ctx, a))
	rock, pop := mustGenre(t, "Rock"), mustGenre(t, "Pop")
	s := mustSong(t, "S1", a)
	s.AddGenre(rock)
	s.AddGenre(pop)
	require.NoError(t, NewRepository[*model.Song](pc).Add(ctx, s))
	assert.NotZero(t, rock.ID())
	assert.NotZero(t, pop.ID())

	s.RemoveGenre(rock)
	require.NoError(t, pc.SaveChanges(ctx))

	song, ok, err := NewRepository[*model.Song](newTestContext(t, ds)).FindOne(ctx, repository.ByID[*model.Song](s.ID()))
	require.NoError(t, err)
	require.True(t, ok)
	gs, err := song.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pop"}, names(gs))
}

func TestFindByNameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	artists := NewRepository[*model.Artist](newTestContext(t, openTestStore(t)))
	q := mustArtist(t, "Queen")
	require.NoError(t, artists.Add(ctx, q))
	require.NoError(t, artists.Add(ctx, mustArtist(t, "Blur")))

	for _, name := range []string{"QUEEN", "queen", " Queen "} {
		got, ok, err := artists.FindOne(ctx, repository.ByName[*model.Artist](name))
		require.NoError(t, err)
		require.True(t, ok, name)
		assert.Same(t, q, got)
	}
	many, err := artists.FindMany(ctx, repository.ByName[*model.Artist]("BLUR"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Blur"}, names(many))
}

func TestLazyLoadingCachesWithinContext(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	seed := newTestContext(t, ds)
	a := mustArtist(t, "Queen")
	require.NoError(t, NewRepository[*model.Artist](seed).Add(ctx, a))
	require.NoError(t, NewRepository[*model.Song](seed).Add(ctx, mustSong(t, "S1", a)))

	pc := newTestContext(t, ds)
	artist, ok, err := NewRepository[*model.Artist](pc).FindOne(ctx, repository.ByName[*model.Artist]("Queen"))
	require.NoError(t, err)
	require.True(t, ok)
	first, err := artist.Songs(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// written through another context after the first access
	require.NoError(t, NewRepository[*model.Song](seed).Add(ctx, mustSong(t, "S2", a)))

	again, err := artist.Songs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, names(again))

	owner, err := first[0].Artist(ctx)
	require.NoError(t, err)
	assert.Same(t, artist, owner)
}

func TestSongAddedByArtistIDJoinsLoadedSongs(t *testing.T) {
	ctx := context.Background()
	pc := newTestContext(t, openTestStore(t))
	a := mustArtist(t, "Queen")
	require.NoError(t, NewRepository[*model.Artist](pc).Add(ctx, a))

	before, err := a.Songs(ctx)
	require.NoError(t, err)
	require.Empty(t, before)

	s, err := model.NewSong("Somebody to Love")
	require.NoError(t, err)
	s.SetArtistID(a.ID())
	require.NoError(t, NewRepository[*model.Song](pc).Add(ctx, s))

	after, err := a.Songs(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Same(t, s, after[0])

	owner, err := s.Artist(ctx)
	require.NoError(t, err)
	assert.Same(t, a, owner)
}

func TestSongMovedToAnotherArtistUpdatesBothCollections(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	seed := newTestContext(t, ds)
	queen, bowie := mustArtist(t, "Queen"), mustArtist(t, "Bowie")
	require.NoError(t, NewRepository[*model.Artist](seed).Add(ctx, queen))
	require.NoError(t, NewRepository[*model.Artist](seed).Add(ctx, bowie))
	require.NoError(t, NewRepository[*model.Song](seed).Add(ctx, mustSong(t, "Under Pressure", queen)))

	// the song is read by id only, so it holds no reference to its artist
	pc := newTestContext(t, ds)
	songs := NewRepository[*model.Song](pc)
	all, err := songs.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	s := all[0]

	artists := NewRepository[*model.Artist](pc)
	from, _, err := artists.FindOne(ctx, repository.ByName[*model.Artist]("Queen"))
	require.NoError(t, err)
	to, _, err := artists.FindOne(ctx, repository.ByName[*model.Artist]("Bowie"))
	require.NoError(t, err)
	fromSongs, err := from.Songs(ctx)
	require.NoError(t, err)
	require.Equal(t, []*model.Song{s}, fromSongs)
	toSongs, err := to.Songs(ctx)
	require.NoError(t, err)
	require.Empty(t, toSongs)

	s.SetArtistID(to.ID())
	require.NoError(t, songs.Update(ctx, s))

	fromSongs, err = from.Songs(ctx)
	require.NoError(t, err)
	assert.Empty(t, fromSongs)
	toSongs, err = to.Songs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*model.Song{s}, toSongs)
}

func TestSongWithoutArtistFailsAndLeavesContextUsable(t *testing.T) {
	ctx := context.Background()
	pc := newTestContext(t, openTestStore(t))
	songs := NewRepository[*model.Song](pc)

	orphan, err := model.NewSong("Orphan")
	require.NoError(t, err)
	require.ErrorIs(t, songs.Add(ctx, orphan), repository.ErrPersistence)
	assert.Zero(t, orphan.ID())

	missing := mustSong(t, "Dangling", nil)
	missing.SetArtistID(4242)
	require.ErrorIs(t, songs.Add(ctx, missing), repository.ErrPersistence)
	assert.Zero(t, missing.ID())

	a := mustArtist(t, "Queen")
	require.NoError(t, NewRepository[*model.Artist](pc).Add(ctx, a))
	require.NoError(t, songs.Add(ctx, mustSong(t, "S1", a)))
}

func TestFailedFlushWritesNothing(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	pc := newTestContext(t, ds)

	a := mustArtist(t, "Queen")
	require.NoError(t, Set[*model.Artist](pc).Add(a))
	orphan, err := model.NewSong("Orphan")
	require.NoError(t, err)
	require.NoError(t, Set[*model.Song](pc).Add(orphan))

	require.ErrorIs(t, pc.SaveChanges(ctx), repository.ErrPersistence)
	assert.Zero(t, a.ID())

	stored, err := NewRepository[*model.Artist](newTestContext(t, ds)).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// dropping the bad change lets the rest go through
	require.NoError(t, Set[*model.Song](pc).Remove(orphan))
	require.NoError(t, pc.SaveChanges(ctx))
	assert.NotZero(t, a.ID())
}

func TestSetAddThenRemoveNeverHitsStore(t *testing.T) {
	ctx := context.Background()
	pc := newTestContext(t, openTestStore(t))
	set := Set[*model.Genre](pc)

	g := mustGenre(t, "Rock")
	require.NoError(t, set.Add(g))
	require.NoError(t, set.Remove(g))
	require.NoError(t, pc.SaveChanges(ctx))

	assert.Zero(t, g.ID())
	all, err := set.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSetFindUsesIdentityMap(t *testing.T) {
	ctx := context.Background()
	pc := newTestContext(t, openTestStore(t))
	g := mustGenre(t, "Rock")
	require.NoError(t, NewRepository[*model.Genre](pc).Add(ctx, g))

	got, ok, err := Set[*model.Genre](pc).Find(ctx, g.ID())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, g, got)

	_, ok, err = Set[*model.Genre](pc).Find(ctx, g.ID()+100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClosedContextIsConnectionError(t *testing.T) {
	ctx := context.Background()
	ds := openTestStore(t)
	pc, err := ds.NewContext(ctx)
	require.NoError(t, err)
	require.NoError(t, pc.Close())
	require.NoError(t, pc.Close())

	artists := NewRepository[*model.Artist](pc)
	_, err = artists.List(ctx)
	require.ErrorIs(t, err, repository.ErrConnection)
	require.ErrorIs(t, artists.Add(ctx, mustArtist(t, "Queen")), repository.ErrConnection)
	require.ErrorIs(t, pc.SaveChanges(ctx), repository.ErrConnection)
}

type unregistered struct{ model.Artist }

func TestSetOfUnregisteredTypeFails(t *testing.T) {
	pc := newTestContext(t, openTestStore(t))
	_, err := Set[*unregistered](pc).All(context.Background())
	require.Error(t, err)
}

type countingStrategy struct{ startups, snapshots int }

func (c *countingStrategy) OnStartup(ctx context.Context, dbPath string) error {
	c.startups++
	return nil
}

func (c *countingStrategy) OnShutdown(ctx context.Context, dbPath string) error {
	c.snapshots++
	return nil
}

func TestOpenRunsSnapshotHooks(t *testing.T) {
	ctx := context.Background()
	strat := &countingStrategy{}
	ds, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "catalog.sqlite"), Strategy: strat})
	require.NoError(t, err)
	require.NoError(t, ds.Ping(ctx))
	assert.Equal(t, 1, strat.startups)

	require.NoError(t, ds.Snapshot(ctx))
	require.NoError(t, ds.Close())
	assert.Equal(t, 2, strat.snapshots)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	require.Error(t, err)
}
