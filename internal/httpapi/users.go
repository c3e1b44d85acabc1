package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dorandoran/user/internal/apperr"
	"github.com/dorandoran/user/internal/auth"
	"github.com/dorandoran/user/internal/domain/users"
)

const maxBodyBytes = 64 << 10

type userHandlers struct {
	svc    users.Service
	logger zerolog.Logger
}

func (h *userHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		h.logger.Info().Str("email", req.Email).Err(err).Msg("create user rejected")
		respondError(w, r, h.logger, err)
		return
	}
	respondSuccess(w, toUserDTO(user), "user created")
}

func (h *userHandlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "User service is running")
}

func (h *userHandlers) getByEmail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		respondError(w, r, h.logger, apperr.Newf(apperr.InvalidRequest, "invalid email"))
		return
	}
	user, err := h.svc.GetByEmail(r.Context(), email)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *userHandlers) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	out := make([]userDTO, 0, len(list))
	for _, u := range list {
		out = append(out, toUserDTO(u))
	}
	respondSuccess(w, userListDTO{Users: out, Count: len(out)}, "users listed")
}

func parseFilter(q url.Values) (users.Filter, error) {
	var f users.Filter
	if v := q.Get("status"); v != "" {
		st, err := users.ParseStatus(v)
		if err != nil {
			return users.Filter{}, err
		}
		f.Status = st
	}
	f.NameContains = q.Get("q")
	if v := q.Get("connectedSince"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return users.Filter{}, apperr.Newf(apperr.InvalidRequest, "connectedSince must be RFC3339")
		}
		f.ConnectedSince = t
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"offset", &f.Offset}, {"limit", &f.Limit}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return users.Filter{}, apperr.Newf(apperr.InvalidRequest, "%s must be a non-negative integer", p.name)
		}
		*p.dst = n
	}
	return f, nil
}

func (h *userHandlers) me(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	id, err := uuid.Parse(principal.Subject)
	if err != nil {
		respondCode(w, apperr.AuthTokenInvalid, "caller is not a user")
		return
	}
	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondSuccess(w, toUserDTO(user), "current user")
}

func (h *userHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.svc.ResetPasswordByEmail(r.Context(), req.Email, req.NewPassword); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *userHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *userHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	input, err := req.input()
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *userHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	raw := r.URL.Query().Get("status")
	if raw == "" {
		respondError(w, r, h.logger, apperr.Newf(apperr.InvalidRequest, "status is required"))
		return
	}
	status, err := users.ParseStatus(raw)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	user, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserDTO(user))
}

func (h *userHandlers) updatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	password, err := readPasswordBody(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.svc.UpdatePassword(r.Context(), id, password); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// readPasswordBody accepts a bare string, a JSON string or {"newPassword": "..."}.
func readPasswordBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return "", apperr.Newf(apperr.InvalidRequest, "unreadable request body")
	}
	body = bytes.TrimSpace(body)
	switch {
	case len(body) == 0:
		return "", apperr.Newf(apperr.InvalidRequest, "password is required")
	case body[0] == '"':
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return "", apperr.Newf(apperr.InvalidRequest, "invalid JSON payload")
		}
		return s, nil
	case body[0] == '{':
		var req struct {
			NewPassword string `json:"newPassword"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return "", apperr.Newf(apperr.InvalidRequest, "invalid JSON payload")
		}
		return req.NewPassword, nil
	default:
		return string(body), nil
	}
}

func (h *userHandlers) touchLastConnection(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.svc.TouchLastConnection(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *userHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	h.logger.Info().Str("user_id", id.String()).Msg("user deleted")
	w.WriteHeader(http.StatusOK)
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.InvalidRequest, "invalid user id")
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Newf(apperr.InvalidRequest, "request body is required")
		}
		return apperr.Newf(apperr.InvalidRequest, "invalid JSON payload")
	}
	return nil
}
