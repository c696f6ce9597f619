package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"image/png"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_feed/internal/app"
	"review_feed/internal/domain"
	"review_feed/internal/layout"
)

const defaultWidth = 375

type Handlers struct {
	List      *app.FeedList
	Layout    *layout.Engine
	Threshold float64
	// Ready reports dependency health for /healthz; nil means always ready.
	Ready func(r *http.Request) error
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type scrollRequest struct {
	ViewportHeight float64 `json:"viewport_height"`
	ContentHeight  float64 `json:"content_height"`
	OffsetY        float64 `json:"offset_y"`
}

type scrollResponse struct {
	Triggered bool `json:"triggered"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.health)
	s.mux.Route("/v1/reviews", func(r chi.Router) {
		r.Get("/", h.listReviews)
		r.Post("/next", h.nextPage)
		r.Post("/refresh", h.refresh)
		r.Post("/scroll", h.scroll)
		r.Post("/{id}/show-more", h.showMore)
		r.Get("/{id}/photos/{index}", h.photo)
		r.Put("/{id}/visible", h.visible(true))
		r.Delete("/{id}/visible", h.visible(false))
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil {
		if err := h.Ready(r); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	width := float64(defaultWidth)
	if ws := r.URL.Query().Get("width"); ws != "" {
		f, err := strconv.ParseFloat(ws, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			writeProblem(w, http.StatusBadRequest, "Invalid width", "width must be a finite number")
			return
		}
		width = f
	}

	state, err := h.List.Snapshot(r.Context())
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "list state not available")
		return
	}

	etag, body := calcETagAndBody(buildListView(state, h.Layout, width))
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "list view could not be encoded")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}

func (h *Handlers) nextPage(w http.ResponseWriter, _ *http.Request) {
	h.List.LoadNextPage()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) refresh(w http.ResponseWriter, _ *http.Request) {
	h.List.Refresh()
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) scroll(w http.ResponseWriter, r *http.Request) {
	var req scrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "expected viewport_height, content_height and offset_y")
		return
	}
	if req.ViewportHeight <= 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid viewport", "viewport_height must be positive")
		return
	}
	triggered := app.ShouldLoadNextPage(req.ViewportHeight, req.ContentHeight, req.OffsetY, h.Threshold)
	if triggered {
		h.List.LoadNextPage()
	}
	writeJSON(w, http.StatusOK, scrollResponse{Triggered: triggered})
}

// reviewExists checks id against the current snapshot and writes the problem
// response when it is unknown.
func (h *Handlers) reviewExists(w http.ResponseWriter, r *http.Request, id domain.RowID) bool {
	state, err := h.List.Snapshot(r.Context())
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "list state not available")
		return false
	}
	if _, ok := state.Review(id); !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
		return false
	}
	return true
}

func (h *Handlers) showMore(w http.ResponseWriter, r *http.Request) {
	id := domain.RowID(chi.URLParam(r, "id"))
	if !h.reviewExists(w, r, id) {
		return
	}
	h.List.ShowMore(id)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) visible(visible bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := domain.RowID(chi.URLParam(r, "id"))
		if !h.reviewExists(w, r, id) {
			return
		}
		if visible {
			h.List.OnRowVisible(id)
		} else {
			h.List.OnRowHidden(id)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// photo serves one resolved photo as PNG and reports the tap to the list.
func (h *Handlers) photo(w http.ResponseWriter, r *http.Request) {
	id := domain.RowID(chi.URLParam(r, "id"))
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid index", "index must be an integer")
		return
	}

	sel, ok, err := h.List.Photo(r.Context(), id, index)
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "list state not available")
		return
	}
	if !ok {
		writeProblem(w, http.StatusNotFound, "Not Found", "photo not found or not resolved yet")
		return
	}
	px := sel.Photos[sel.Index].Pixels
	if px == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "photo has no pixel data")
		return
	}

	h.List.OnPhotoTapped(id, index)

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := png.Encode(w, px); err != nil {
		log.Error().Err(err).Msg("failed to encode photo")
	}
}
