package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/ciridae/scopematch/internal/config"
	"github.com/ciridae/scopematch/internal/jobs"
	"github.com/ciridae/scopematch/internal/models"
)

type stubPipeline struct {
	jobs      map[string]jobs.Job
	submitted [][2]string
}

func (p *stubPipeline) Submit(sourcePath, targetPath string) jobs.Job {
	p.submitted = append(p.submitted, [2]string{sourcePath, targetPath})
	job := jobs.Job{ID: "job-1", Status: jobs.StatusPending}
	if p.jobs == nil {
		p.jobs = map[string]jobs.Job{}
	}
	p.jobs[job.ID] = job
	return job
}

func (p *stubPipeline) Job(id string) (jobs.Job, bool) {
	job, ok := p.jobs[id]
	return job, ok
}

func (p *stubPipeline) JobCount() int {
	return len(p.jobs)
}

func newTestServer(t *testing.T, pipeline *stubPipeline) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "localhost", Port: 8080, UploadDir: dir},
		Storage: config.StorageConfig{DatabasePath: filepath.Join(dir, "cache.db")},
	}
	return NewServer(pipeline, cfg, zap.NewNop())
}

func multipartPair(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range map[string]string{
		"contractor": "%PDF-contractor",
		"insurance":  "%PDF-insurance",
	} {
		fw, err := mw.CreateFormFile(field, field+".pdf")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleCreateJob(t *testing.T) {
	pipeline := &stubPipeline{}
	srv := newTestServer(t, pipeline)

	body, contentType := multipartPair(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out jobs.Job
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.ID != "job-1" {
		t.Errorf("job id: got %q", out.ID)
	}
	if len(pipeline.submitted) != 1 {
		t.Fatalf("submissions: got %d", len(pipeline.submitted))
	}
	source, target := pipeline.submitted[0][0], pipeline.submitted[0][1]
	if filepath.Base(source) != "contractor.pdf" || filepath.Base(target) != "insurance.pdf" {
		t.Errorf("uploaded paths: got %s, %s", source, target)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "%PDF-contractor" {
		t.Errorf("contractor upload content: got %q", data)
	}
}

func TestHandleCreateJob_MissingFile(t *testing.T) {
	pipeline := &stubPipeline{}
	srv := newTestServer(t, pipeline)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("contractor", "contractor.pdf")
	_, _ = fw.Write([]byte("%PDF-contractor"))
	mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
	if len(pipeline.submitted) != 0 {
		t.Errorf("expected no submissions, got %d", len(pipeline.submitted))
	}
}

func TestHandleGetJob(t *testing.T) {
	pipeline := &stubPipeline{jobs: map[string]jobs.Job{
		"job-1": {ID: "job-1", Status: jobs.StatusParsing, Step: 2, TotalSteps: 6},
	}}
	srv := newTestServer(t, pipeline)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out jobs.Job
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != jobs.StatusParsing || out.Step != 2 {
		t.Errorf("job: got %+v", out)
	}
}

func TestHandleGetJob_NotFound(t *testing.T) {
	srv := newTestServer(t, &stubPipeline{})
	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleGetJobItems(t *testing.T) {
	result := &models.ComparisonResult{Rooms: []*models.RoomComparison{
		{SourceRooms: []string{"Bathroom"}, TargetRooms: []string{"Bathroom"}},
	}}
	pipeline := &stubPipeline{jobs: map[string]jobs.Job{
		"job-1": {ID: "job-1", Status: jobs.StatusComplete, Result: result},
	}}
	srv := newTestServer(t, pipeline)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/items", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out models.ComparisonResult
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Rooms) != 1 || out.Rooms[0].SourceRooms[0] != "Bathroom" {
		t.Errorf("result: got %+v", out)
	}
}

func TestHandleGetJobItems_NotComplete(t *testing.T) {
	pipeline := &stubPipeline{jobs: map[string]jobs.Job{
		"job-1": {ID: "job-1", Status: jobs.StatusMatching},
	}}
	srv := newTestServer(t, pipeline)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/items", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", w.Code)
	}
}

func TestHandleGetJobItems_Failed(t *testing.T) {
	pipeline := &stubPipeline{jobs: map[string]jobs.Job{
		"job-1": {ID: "job-1", Status: jobs.StatusError, Error: "parse contractor document: boom"},
	}}
	srv := newTestServer(t, pipeline)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/items", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", w.Code)
	}
	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Error != "parse contractor document: boom" {
		t.Errorf("error message: got %q", out.Error)
	}
}

func TestHandleGetJobReport(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.xlsx")
	if err := os.WriteFile(reportPath, []byte("xlsx-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	pipeline := &stubPipeline{jobs: map[string]jobs.Job{
		"job-1": {ID: "job-1", Status: jobs.StatusComplete, ReportPath: reportPath},
	}}
	srv := newTestServer(t, pipeline)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/report", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="report.xlsx"` {
		t.Errorf("content disposition: got %q", got)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("body: got %q", w.Body.String())
	}
}

func TestHandleGetJobReport_NoReport(t *testing.T) {
	pipeline := &stubPipeline{jobs: map[string]jobs.Job{
		"job-1": {ID: "job-1", Status: jobs.StatusComplete},
	}}
	srv := newTestServer(t, pipeline)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1/report", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubPipeline{})
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	pipeline := &stubPipeline{jobs: map[string]jobs.Job{
		"job-1": {ID: "job-1", Status: jobs.StatusComplete},
		"job-2": {ID: "job-2", Status: jobs.StatusParsing},
	}}
	srv := newTestServer(t, pipeline)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Jobs           int    `json:"jobs"`
		DiskUsageBytes *int64 `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Jobs != 2 {
		t.Errorf("jobs: got %d, want 2", out.Jobs)
	}
	if out.DiskUsageBytes == nil {
		t.Error("expected disk_usage_bytes in response")
	}
}
