package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"vistora/internal/domain"
	"vistora/internal/manager"
	"vistora/pkg/types"
)

// listProfiles godoc
// @Summary      List profiles
// @Tags         profiles
// @Produce      json
// @Success      200  {object}  types.ProfileList
// @Router       /api/v1/profiles [get]
func (s *server) listProfiles(w http.ResponseWriter, r *http.Request) {
	if s.Profiles == nil {
		unavailable(w, "profiles")
		return
	}
	ps, err := s.Profiles.ListProfiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := types.ProfileList{Profiles: make([]types.Profile, 0, len(ps))}
	for _, p := range ps {
		out.Profiles = append(out.Profiles, p.View())
	}
	writeJSON(w, http.StatusOK, out)
}

// getProfile godoc
// @Summary      Get a profile
// @Tags         profiles
// @Produce      json
// @Param        name  path      string  true  "profile name"
// @Success      200   {object}  types.Profile
// @Failure      404   {object}  types.ErrorResponse
// @Router       /api/v1/profiles/{name} [get]
func (s *server) getProfile(w http.ResponseWriter, r *http.Request) {
	if s.Profiles == nil {
		unavailable(w, "profiles")
		return
	}
	name := chi.URLParam(r, "name")
	p, ok, err := s.Profiles.GetProfile(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, "profile not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

// putProfile godoc
// @Summary      Create or replace a profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        name     path      string               true  "profile name"
// @Param        request  body      types.ProfileUpdate  true  "settings"
// @Success      200      {object}  types.Profile
// @Failure      400      {object}  types.ErrorResponse
// @Router       /api/v1/profiles/{name} [put]
func (s *server) putProfile(w http.ResponseWriter, r *http.Request) {
	if s.Profiles == nil {
		unavailable(w, "profiles")
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "profile name is required")
		return
	}
	var req types.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := manager.ValidateProfileSettings(req.Settings); err != nil {
		writeError(w, r, err)
		return
	}
	p := domain.Profile{Name: name, Settings: req.Settings, UpdatedAt: s.Now().UTC().Truncate(time.Microsecond)}
	if err := s.Profiles.PutProfile(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}
