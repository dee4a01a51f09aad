package handlers

import (
	"errors"
	"net/http"

	"github.com/ozgurkara/bordrohub/internal/auth"
	"github.com/ozgurkara/bordrohub/internal/httpx"
	"github.com/ozgurkara/bordrohub/internal/jobs"
)

type JobHandler struct {
	Jobs *jobs.Store
}

func NewJobHandler(store *jobs.Store) *JobHandler { return &JobHandler{Jobs: store} }

// Get returns the progress of one background job. Jobs of other
// companies look exactly like expired ones.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	job, err := h.Jobs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "job_not_found", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_job", nil)
		return
	}
	if job.CompanyID != id.CompanyID {
		httpx.JSONError(w, http.StatusNotFound, "job_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}
