package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"challengehub/pkg/domain"
)

type updateWorkRequest struct {
	Content string `json:"content"`
}

type createFeedbackRequest struct {
	Content     string `json:"content"`
	RepliesToID *uint  `json:"repliesToId"`
}

func (s *Server) handleWorkByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/works/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, ok := parseID(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "work not found")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			work, err := s.app.GetWork(user, id)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, work)
		case http.MethodPatch:
			var req updateWorkRequest
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			work, err := s.app.UpdateWork(user, id, req.Content)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, work)
		case http.MethodDelete:
			if err := s.app.DeleteWork(user, id); err != nil {
				writeAppError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w)
		}
		return
	}
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch parts[1] {
	case "likes":
		s.handleWorkLikes(w, r, user, id)
	case "feedbacks":
		s.handleWorkFeedbacks(w, r, user, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleWorkLikes(w http.ResponseWriter, r *http.Request, user domain.User, workID uint) {
	switch r.Method {
	case http.MethodPost:
		if err := s.app.LikeWork(user, workID); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]bool{"isLiked": true})
	case http.MethodDelete:
		if err := s.app.UnlikeWork(user, workID); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleWorkFeedbacks(w http.ResponseWriter, r *http.Request, user domain.User, workID uint) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.app.ListFeedback(user, workID, queryUint(r, "cursor"), queryInt(r, "limit"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPost:
		var req createFeedbackRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, err := s.app.CreateFeedback(user, workID, req.Content, req.RepliesToID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w)
	}
}
