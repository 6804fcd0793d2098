package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"challengehub/pkg/domain"
)

type updateFeedbackRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleFeedbackByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/feedbacks/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, ok := parseID(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "feedback not found")
		return
	}

	if len(parts) == 2 && parts[1] == "replies" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		page, err := s.app.ListReplies(user, id, queryUint(r, "cursor"), queryInt(r, "limit"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req updateFeedbackRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		item, err := s.app.UpdateFeedback(user, id, req.Content)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.app.DeleteFeedback(user, id); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}
