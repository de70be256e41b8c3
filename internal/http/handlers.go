package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tally/internal/categorize"
	"tally/internal/query"
	"tally/internal/services"
)

// handleUpload accepts one or more statement CSVs as multipart "files" parts
// and reports a per-file outcome. A bad file never blocks its siblings.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID, st := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "could not parse multipart upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided, use multipart field \"files\"")
		return
	}

	files := make([]services.UploadFile, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "could not open uploaded file "+part.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "could not read uploaded file "+part.Filename)
			return
		}
		files = append(files, services.UploadFile{Name: part.Filename, Data: data})
	}

	outcomes := s.importer.ImportFiles(r.Context(), sessionID, st, files)
	respondJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

type sourceView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	_, st := s.session(w, r)

	sources := st.Sources()
	views := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, sourceView{ID: src.ID, Name: src.Name})
	}
	respondJSON(w, http.StatusOK, map[string]any{"sources": views})
}

// handleRemoveSource drops a source by display name. Removal is idempotent,
// so the response is 204 whether or not anything matched.
func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	sessionID, st := s.session(w, r)

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "missing source name")
		return
	}

	removed := st.RemoveSource(name)
	slog.InfoContext(r.Context(), "source removal",
		"session_id", sessionID, "name", name, "removed", removed)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	_, st := s.session(w, r)
	respondJSON(w, http.StatusOK, map[string]any{"categories": st.Categories()})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	_, st := s.session(w, r)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "category name must not be empty")
		return
	}

	st.RegisterCategory(req.Name)
	respondJSON(w, http.StatusCreated, map[string]any{"categories": st.Categories()})
}

// handleCategorize bulk-assigns a category to every transaction matching the
// filter. dry_run previews the match count without applying.
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	sessionID, st := s.session(w, r)

	var req struct {
		Category            string `json:"category"`
		DescriptionContains string `json:"description_contains"`
		TransactionType     string `json:"transaction_type"`
		DryRun              bool   `json:"dry_run"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		respondError(w, http.StatusBadRequest, "category must not be empty")
		return
	}

	filter := categorize.Filter{
		DescriptionContains: req.DescriptionContains,
		TransactionType:     req.TransactionType,
	}

	var matched int
	if req.DryRun {
		matched = categorize.Count(st, filter)
	} else {
		matched = categorize.Apply(st, req.Category, filter)
		slog.InfoContext(r.Context(), "bulk categorization applied",
			"session_id", sessionID, "category", req.Category, "matched", matched)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"matched": matched,
		"applied": !req.DryRun,
	})
}

// handleSetCategory edits a single transaction addressed by its position in
// the date-sorted list.
func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	_, st := s.session(w, r)

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction index")
		return
	}

	var req struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		respondError(w, http.StatusBadRequest, "category must not be empty")
		return
	}

	if index < 0 || index >= st.Len() {
		respondError(w, http.StatusNotFound, "no transaction at index "+strconv.Itoa(index))
		return
	}
	st.SetCategory(index, req.Category)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	_, st := s.session(w, r)

	params, err := parseFilterParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	full := st.Transactions()
	views := viewsOf(full, params.apply(full))
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": views,
		"count":        len(views),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID, st := s.session(w, r)

	params, err := parseFilterParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cacheKey(sessionID, st.Version(), r)
	if summary, ok := s.summaryCache.Get(key); ok {
		respondJSON(w, http.StatusOK, summary)
		return
	}

	summary := query.Summarize(params.apply(st.Transactions()))
	s.summaryCache.Set(key, summary)
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	sessionID, st := s.session(w, r)

	params, err := parseFilterParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cacheKey(sessionID, st.Version(), r)
	if series, ok := s.seriesCache.Get(key); ok {
		respondJSON(w, http.StatusOK, map[string]any{"series": series})
		return
	}

	series := query.TimeSeries(params.apply(st.Transactions()))
	s.seriesCache.Set(key, series)
	respondJSON(w, http.StatusOK, map[string]any{"series": series})
}

// handleDropSession discards the caller's in-memory store and clears the
// session cookie.
func (s *Server) handleDropSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		s.registry.Drop(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
