package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dorandoran/user/internal/apperr"
	"github.com/dorandoran/user/internal/domain/profiles"
)

type profileHandlers struct {
	svc    profiles.Service
	logger zerolog.Logger
}

func (h *profileHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	p, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileDTO(p))
}

func (h *profileHandlers) upsertProfile(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	p, err := h.svc.UpsertProfile(r.Context(), id, profiles.ProfileInput{
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Settings:  req.Settings,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toProfileDTO(p))
}

func (h *profileHandlers) listSettings(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	list, err := h.svc.ListSettings(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	out := make([]settingDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toSettingDTO(s))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *profileHandlers) getSetting(w http.ResponseWriter, r *http.Request) {
	id, key, err := settingParams(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	s, err := h.svc.GetSetting(r.Context(), id, key)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSettingDTO(s))
}

func (h *profileHandlers) putSetting(w http.ResponseWriter, r *http.Request) {
	id, key, err := settingParams(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	var req settingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	s, err := h.svc.PutSetting(r.Context(), id, key, req.Value)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, toSettingDTO(s))
}

func (h *profileHandlers) deleteSetting(w http.ResponseWriter, r *http.Request) {
	id, key, err := settingParams(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := h.svc.DeleteSetting(r.Context(), id, key); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func settingParams(r *http.Request) (uuid.UUID, string, error) {
	uid, err := userIDParam(r)
	if err != nil {
		return uid, "", err
	}
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		return uid, "", apperr.Newf(apperr.InvalidRequest, "invalid setting key")
	}
	return uid, key, nil
}
