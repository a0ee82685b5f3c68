package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/jobs"
	"github.com/ciridae/scopematch/internal/storage"
)

// maxUploadBytes bounds one submission (two PDFs).
const maxUploadBytes = 64 << 20

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	dir, err := os.MkdirTemp(s.config.Server.UploadDir, "job-")
	if err != nil {
		s.logger.Error("create upload dir failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sourcePath, err := s.saveUpload(r, "contractor", filepath.Join(dir, "contractor.pdf"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	targetPath, err := s.saveUpload(r, "insurance", filepath.Join(dir, "insurance.pdf"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.pipeline.Submit(sourcePath, targetPath)
	s.logger.Info("job submitted", zap.String("job_id", job.ID))
	s.respondJSON(w, http.StatusAccepted, job)
}

// saveUpload writes the named multipart file field to dst.
func (s *Server) saveUpload(r *http.Request, field, dst string) (string, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing file field %q", field)
	}
	defer file.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", field, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("save %s: %w", field, err)
	}
	return dst, nil
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.pipeline.Job(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

// completedJob fetches a job that must be complete for its artifacts to be
// served, writing the appropriate error response otherwise.
func (s *Server) completedJob(w http.ResponseWriter, id string) (jobs.Job, bool) {
	job, ok := s.pipeline.Job(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return jobs.Job{}, false
	}
	if job.Status == jobs.StatusError {
		s.respondError(w, http.StatusConflict, job.Error)
		return jobs.Job{}, false
	}
	if job.Status != jobs.StatusComplete {
		s.respondError(w, http.StatusConflict, "job not complete")
		return jobs.Job{}, false
	}
	return job, true
}

func (s *Server) handleGetJobItems(w http.ResponseWriter, r *http.Request) {
	job, ok := s.completedJob(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, job.Result)
}

func (s *Server) handleGetJobReport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.completedJob(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if job.ReportPath == "" {
		s.respondError(w, http.StatusNotFound, "report not generated")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="report.xlsx"`)
	http.ServeFile(w, r, job.ReportPath)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"jobs": s.pipeline.JobCount(),
	}
	diskBytes, err := storage.DiskUsageBytes(s.config.Server.UploadDir, s.config.Storage.DatabasePath)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
