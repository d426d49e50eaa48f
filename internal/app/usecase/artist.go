package usecase

import (
	"context"
	"fmt"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
	"github.com/screensound/catalog/internal/infra/datastore"
)

type ArtistView struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Bio          string `json:"bio"`
	ProfilePhoto string `json:"profile_photo"`
}

type ArtistInput struct {
	Name         string `json:"name"`
	Bio          string `json:"bio"`
	ProfilePhoto string `json:"profile_photo"`
}

func artistView(a *model.Artist) ArtistView {
	return ArtistView{ID: a.ID(), Name: a.Name(), Bio: a.Bio, ProfilePhoto: a.ProfilePhoto}
}

type ArtistService struct {
	ds datastore.DataStore
}

func NewArtistService(ds datastore.DataStore) *ArtistService {
	return &ArtistService{ds: ds}
}

func (s *ArtistService) List(ctx context.Context, p ListParams) (ListResult[ArtistView], error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (ListResult[ArtistView], error) {
		all, err := datastore.NewRepository[*model.Artist](pc).List(ctx)
		if err != nil {
			return ListResult[ArtistView]{}, err
		}
		return paginate(mapAll(all, artistView), p), nil
	})
}

// FindByName matches case-insensitively.
func (s *ArtistService) FindByName(ctx context.Context, name string) (ArtistView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (ArtistView, error) {
		a, err := findOne(ctx, datastore.NewRepository[*model.Artist](pc), repository.ByName[*model.Artist](name), "artist "+name)
		if err != nil {
			return ArtistView{}, err
		}
		return artistView(a), nil
	})
}

func (s *ArtistService) Create(ctx context.Context, in ArtistInput) (ArtistView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (ArtistView, error) {
		a, err := model.NewArtist(in.Name, in.Bio)
		if err != nil {
			return ArtistView{}, err
		}
		a.ProfilePhoto = in.ProfilePhoto
		if err := datastore.NewRepository[*model.Artist](pc).Add(ctx, a); err != nil {
			return ArtistView{}, err
		}
		return artistView(a), nil
	})
}

// Update replaces name and bio; an empty ProfilePhoto keeps the current one.
func (s *ArtistService) Update(ctx context.Context, id int64, in ArtistInput) (ArtistView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (ArtistView, error) {
		artists := datastore.NewRepository[*model.Artist](pc)
		a, err := findOne(ctx, artists, repository.ByID[*model.Artist](id), fmt.Sprintf("artist id=%d", id))
		if err != nil {
			return ArtistView{}, err
		}
		if err := a.SetName(in.Name); err != nil {
			return ArtistView{}, err
		}
		a.Bio = in.Bio
		if in.ProfilePhoto != "" {
			a.ProfilePhoto = in.ProfilePhoto
		}
		if err := artists.Update(ctx, a); err != nil {
			return ArtistView{}, err
		}
		return artistView(a), nil
	})
}

// Delete removes the artist and, through the store cascade, its songs.
func (s *ArtistService) Delete(ctx context.Context, id int64) error {
	_, err := inContext(ctx, s.ds, func(pc *datastore.Context) (struct{}, error) {
		artists := datastore.NewRepository[*model.Artist](pc)
		a, err := findOne(ctx, artists, repository.ByID[*model.Artist](id), fmt.Sprintf("artist id=%d", id))
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, artists.Delete(ctx, a)
	})
	return err
}
