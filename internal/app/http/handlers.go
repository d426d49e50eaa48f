package apphttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/screensound/catalog/internal/app/usecase"
	"github.com/screensound/catalog/internal/infra/datastore"
)

// Register wires API endpoints onto r.
func Register(r chi.Router, ds datastore.DataStore) {
	r.Get("/healthz", healthz(ds)) // pings the DB as well

	artists := usecase.NewArtistService(ds)
	r.Route("/artists", func(r chi.Router) {
		r.Get("/", listArtists(artists))
		r.Post("/", createArtist(artists))
		r.Put("/", updateArtist(artists))
		r.Get("/{name}", artistByName(artists))
		r.Delete("/{id}", deleteByID(artists.Delete))
	})

	songs := usecase.NewSongService(ds)
	r.Route("/songs", func(r chi.Router) {
		r.Get("/", listSongs(songs))
		r.Post("/", createSong(songs))
		r.Put("/", updateSong(songs))
		r.Get("/{name}", songByName(songs))
		r.Delete("/{id}", deleteByID(songs.Delete))
	})

	genres := usecase.NewGenreService(ds)
	r.Route("/genres", func(r chi.Router) {
		r.Get("/", listGenres(genres))
		r.Post("/", createGenre(genres))
		r.Get("/{name}", genreByName(genres))
		r.Delete("/{id}", deleteByID(genres.Delete))
	})
}

func healthz(ds datastore.DataStore) http.HandlerFunc {
	type resp struct {
		Status string `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ds.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, resp{Status: "ng"})
			return
		}
		writeJSON(w, http.StatusOK, resp{Status: "ok"})
	}
}

type artistEdit struct {
	ID int64 `json:"id"`
	usecase.ArtistInput
}

type songEdit struct {
	ID int64 `json:"id"`
	usecase.SongInput
}

func listArtists(svc *usecase.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.List(r.Context(), listParams(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func artistByName(svc *usecase.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.FindByName(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func createArtist(svc *usecase.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in usecase.ArtistInput
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func updateArtist(svc *usecase.ArtistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in artistEdit
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Update(r.Context(), in.ID, in.ArtistInput)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// listSongs filters by ?artist= or ?year= when given, otherwise pages all songs.
func listSongs(svc *usecase.SongService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var (
			result any
			err    error
		)
		switch {
		case q.Get("artist") != "":
			result, err = svc.ByArtist(r.Context(), q.Get("artist"))
		case q.Get("year") != "":
			year, convErr := strconv.Atoi(q.Get("year"))
			if convErr != nil {
				writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid year %q", q.Get("year")))
				return
			}
			result, err = svc.ByYear(r.Context(), year)
		default:
			result, err = svc.List(r.Context(), listParams(r))
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func songByName(svc *usecase.SongService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.FindByName(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func createSong(svc *usecase.SongService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in usecase.SongInput
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func updateSong(svc *usecase.SongService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in songEdit
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Update(r.Context(), in.ID, in.SongInput)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func listGenres(svc *usecase.GenreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.List(r.Context(), listParams(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func genreByName(svc *usecase.GenreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.FindByName(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func createGenre(svc *usecase.GenreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in usecase.GenreInput
		if !decode(w, r, &in) {
			return
		}
		v, err := svc.Create(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func deleteByID(del func(ctx context.Context, id int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid id %q", chi.URLParam(r, "id")))
			return
		}
		if err := del(r.Context(), id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// decode reads a JSON body into v, answering 400 on malformed input.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func listParams(r *http.Request) usecase.ListParams {
	q := r.URL.Query()
	return usecase.ListParams{
		Limit:  atoiDefault(q.Get("limit"), 0),
		Offset: atoiDefault(q.Get("offset"), 0),
	}
}

// atoiDefault converts s to int, falling back to def when invalid.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
