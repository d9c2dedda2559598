package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"vistora/internal/manager"
	"vistora/pkg/types"
)

// decodeJSON enforces the content type and body limit shared by all JSON
// endpoints. It writes the error response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// createJob godoc
// @Summary      Create a restoration job
// @Description  Reserves credits and enqueues the job. 402 when the balance cannot cover it.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        request  body      types.CreateJobRequest  true  "job"
// @Success      201      {object}  types.Job
// @Failure      400      {object}  types.ErrorResponse
// @Failure      402      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse  "unknown profile"
// @Router       /api/v1/jobs [post]
func (s *server) createJob(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		unavailable(w, "jobs")
		return
	}
	var req types.CreateJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	job, err := s.Jobs.Create(r.Context(), manager.CreateRequest{
		InputPath:           req.InputPath,
		OutputPath:          req.OutputPath,
		UserID:              req.UserID,
		ProfileName:         req.ProfileName,
		Runner:              req.Runner,
		QualityTier:         req.QualityTier,
		DetectorModel:       req.DetectorModel,
		RestorerModel:       req.RestorerModel,
		RefinerModel:        req.RefinerModel,
		DurationHintSeconds: req.DurationHintSeconds,
		EstimatedCredits:    req.EstimatedCredits,
		Options:             req.Options,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job.View())
}

// listJobs godoc
// @Summary      List jobs, most recently updated first
// @Tags         jobs
// @Produce      json
// @Param        user  query     string  false  "only jobs of this user"
// @Success      200   {object}  types.JobList
// @Router       /api/v1/jobs [get]
func (s *server) listJobs(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		unavailable(w, "jobs")
		return
	}
	jobs, err := s.Jobs.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	out := types.JobList{Jobs: []types.Job{}}
	for _, j := range jobs {
		if user != "" && j.UserID != user {
			continue
		}
		out.Jobs = append(out.Jobs, j.View())
	}
	sort.SliceStable(out.Jobs, func(i, k int) bool { return out.Jobs[i].UpdatedAt.After(out.Jobs[k].UpdatedAt) })
	writeJSON(w, http.StatusOK, out)
}

// getJob godoc
// @Summary      Get a job
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "job id"
// @Success      200  {object}  types.Job
// @Failure      404  {object}  types.ErrorResponse
// @Router       /api/v1/jobs/{id} [get]
func (s *server) getJob(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		unavailable(w, "jobs")
		return
	}
	job, err := s.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}

// cancelJob godoc
// @Summary      Cancel a queued job
// @Description  Refunds part of the reservation. Running and finished jobs answer 409.
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "job id"
// @Success      200  {object}  types.Job
// @Failure      404  {object}  types.ErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /api/v1/jobs/{id}/cancel [post]
func (s *server) cancelJob(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		unavailable(w, "jobs")
		return
	}
	job, err := s.Jobs.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job.View())
}
