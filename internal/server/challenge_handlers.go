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

type updateChallengeRequest struct {
	Title           *string    `json:"title"`
	Field           *string    `json:"field"`
	DocType         *string    `json:"docType"`
	Description     *string    `json:"description"`
	DocURL          *string    `json:"docUrl"`
	Deadline        *time.Time `json:"deadline"`
	MaxParticipants *int       `json:"maxParticipants"`
	Progress        *bool      `json:"progress"`
}

type createWorkRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	list, meta, err := s.app.ListChallenges(app.ChallengeListOptions{
		Fields:    q["field"],
		DocType:   q.Get("docType"),
		Progress:  queryBool(r, "progress"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{List: list, Meta: meta})
}

func (s *Server) handleChallengeByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/challenges/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, ok := parseID(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "challenge not found")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			detail, err := s.app.GetChallenge(user, id)
			if err != nil {
				writeAppError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, detail)
		case http.MethodPatch:
			s.updateChallenge(w, r, user, id)
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
	case "url":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		url, err := s.app.GetChallengeURL(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"docUrl": url})
	case "join":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		challenge, err := s.app.JoinChallenge(user, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, challenge)
	case "works":
		s.handleChallengeWorks(w, r, user, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) updateChallenge(w http.ResponseWriter, r *http.Request, user domain.User, id uint) {
	var req updateChallengeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	detail, err := s.app.UpdateChallenge(user, id, app.ChallengeUpdate{
		Title:           req.Title,
		Field:           req.Field,
		DocType:         req.DocType,
		Description:     req.Description,
		DocURL:          req.DocURL,
		Deadline:        req.Deadline,
		MaxParticipants: req.MaxParticipants,
		Progress:        req.Progress,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleChallengeWorks(w http.ResponseWriter, r *http.Request, user domain.User, challengeID uint) {
	switch r.Method {
	case http.MethodGet:
		list, meta, err := s.app.ListWorks(user, challengeID, queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{List: list, Meta: meta})
	case http.MethodPost:
		var req createWorkRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		work, err := s.app.CreateWork(user, challengeID, req.Content)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, work)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMyOngoingChallenges(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, meta, err := s.app.MyOngoingChallenges(user, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{List: list, Meta: meta})
}

func (s *Server) handleMyCompletedChallenges(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, meta, err := s.app.MyCompletedChallenges(user, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{List: list, Meta: meta})
}
