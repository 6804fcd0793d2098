package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"challengehub/internal/app"
	"challengehub/pkg/domain"
)

type submitApplicationRequest struct {
	Title           string    `json:"title"`
	Field           string    `json:"field"`
	DocType         string    `json:"docType"`
	Description     string    `json:"description"`
	DocURL          string    `json:"docUrl"`
	Deadline        time.Time `json:"deadline"`
	MaxParticipants int       `json:"maxParticipants"`
}

type transitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func applicationListOptions(r *http.Request) app.ApplicationListOptions {
	q := r.URL.Query()
	return app.ApplicationListOptions{
		Status:    domain.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
	}
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		list, meta, err := s.app.AllApplications(user, applicationListOptions(r))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{List: list, Meta: meta})
	case http.MethodPost:
		var req submitApplicationRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		detail, err := s.app.SubmitApplication(user, app.SubmitApplicationInput{
			Title:           req.Title,
			Field:           req.Field,
			DocType:         req.DocType,
			Description:     req.Description,
			DocURL:          req.DocURL,
			Deadline:        req.Deadline,
			MaxParticipants: req.MaxParticipants,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, detail)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMyApplications(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, meta, err := s.app.MyApplications(user, applicationListOptions(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{List: list, Meta: meta})
}

func (s *Server) handleApplicationByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/applications/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, ok := parseID(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	if len(parts) == 2 && parts[1] == "cancel" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		detail, err := s.app.CancelApplication(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		detail, err := s.app.GetApplication(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPatch:
		var req transitionRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		status := domain.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
		detail, err := s.app.TransitionApplication(user, id, status, req.Reason)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	default:
		methodNotAllowed(w)
	}
}
