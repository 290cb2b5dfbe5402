package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tally/internal/core"
)

// maxBodySize caps request bodies; expense payloads are tiny.
const maxBodySize = 64 << 10

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("malformed JSON body")
	}
	return nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "not authenticated"})
		return
	}

	in, err := parseListQuery(r)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	res, err := s.service.List(r.Context(), ownerID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toListResponse(res))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "not authenticated"})
		return
	}

	in, err := parseSummaryQuery(r)
	if err != nil {
		if core.IsValidation(err) {
			respondError(w, r, err)
		} else {
			respondBadRequest(w, err.Error())
		}
		return
	}

	key := s.summaryCacheKey(ownerID, in)
	if cached, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "owner_id", ownerID)
		respondJSON(w, http.StatusOK, cached)
		return
	}

	res, err := s.service.Summary(r.Context(), ownerID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := toSummaryResponse(res)
	s.summaryCache.Set(key, resp)
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "not authenticated"})
		return
	}

	var req createExpenseRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	if req.SpentAt == "" {
		respondError(w, r, core.ErrMissingSpentAt)
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	created, err := s.service.Create(r.Context(), ownerID, in)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(ownerID)
	respondJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "not authenticated"})
		return
	}

	e, err := s.service.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "not authenticated"})
		return
	}

	var req updateExpenseRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondBadRequest(w, err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	updated, err := s.service.Update(r.Context(), ownerID, chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(ownerID)
	respondJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorPayload{Error: "not authenticated"})
		return
	}

	if err := s.service.Delete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateSummaries(ownerID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}
