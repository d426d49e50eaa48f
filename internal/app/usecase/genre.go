package usecase

import (
	"context"
	"fmt"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
	"github.com/screensound/catalog/internal/infra/datastore"
)

type GenreView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func genreView(g *model.Genre) GenreView {
	return GenreView{ID: g.ID(), Name: g.Name(), Description: g.Description}
}

type GenreService struct {
	ds datastore.DataStore
}

func NewGenreService(ds datastore.DataStore) *GenreService {
	return &GenreService{ds: ds}
}

func (s *GenreService) List(ctx context.Context, p ListParams) (ListResult[GenreView], error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (ListResult[GenreView], error) {
		all, err := datastore.NewRepository[*model.Genre](pc).List(ctx)
		if err != nil {
			return ListResult[GenreView]{}, err
		}
		return paginate(mapAll(all, genreView), p), nil
	})
}

func (s *GenreService) FindByName(ctx context.Context, name string) (GenreView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (GenreView, error) {
		g, err := findOne(ctx, datastore.NewRepository[*model.Genre](pc), repository.ByName[*model.Genre](name), "genre "+name)
		if err != nil {
			return GenreView{}, err
		}
		return genreView(g), nil
	})
}

// Create adds a genre. Names are unique ignoring case.
func (s *GenreService) Create(ctx context.Context, in GenreInput) (GenreView, error) {
	return inContext(ctx, s.ds, func(pc *datastore.Context) (GenreView, error) {
		g, err := model.NewGenre(in.Name, in.Description)
		if err != nil {
			return GenreView{}, err
		}
		genres := datastore.NewRepository[*model.Genre](pc)
		_, exists, err := genres.FindOne(ctx, repository.ByName[*model.Genre](in.Name))
		if err != nil {
			return GenreView{}, err
		}
		if exists {
			return GenreView{}, fmt.Errorf("%w: genre %q already exists", model.ErrValidation, in.Name)
		}
		if err := genres.Add(ctx, g); err != nil {
			return GenreView{}, err
		}
		return genreView(g), nil
	})
}

// Delete removes the genre; songs keep existing without it.
func (s *GenreService) Delete(ctx context.Context, id int64) error {
	_, err := inContext(ctx, s.ds, func(pc *datastore.Context) (struct{}, error) {
		genres := datastore.NewRepository[*model.Genre](pc)
		g, err := findOne(ctx, genres, repository.ByID[*model.Genre](id), fmt.Sprintf("genre id=%d", id))
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, genres.Delete(ctx, g)
	})
	return err
}
