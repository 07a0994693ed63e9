package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeRender/internal/database"
	"resumeRender/internal/docgen"
	"resumeRender/internal/errcode"
	"resumeRender/internal/resume"
	"resumeRender/internal/scan"
	"resumeRender/internal/storage"
	"resumeRender/internal/tasks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRenderer struct {
	mu    sync.Mutex
	pdf   []byte
	err   error
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, _ resume.Request) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.pdf, r.err
}

type fakeScanner struct{ err error }

func (s fakeScanner) Scan([]byte) error { return s.err }

type fakeCache struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[key]
	return doc, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, doc []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docs == nil {
		c.docs = map[string][]byte{}
	}
	c.docs[key] = doc
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: "default", Type: task.Type()}, nil
}

type fakeSigner struct {
	statErr error
}

func (s *fakeSigner) StatObject(_ context.Context, key string) (*storage.ObjectMeta, error) {
	if s.statErr != nil {
		return nil, fmt.Errorf("stat object %q: %w", key, s.statErr)
	}
	return &storage.ObjectMeta{Key: key, Size: 4, ContentType: "application/pdf"}, nil
}

func (s *fakeSigner) PresignDownload(_ context.Context, key string, _ time.Duration, _ string) (string, error) {
	return "https://files.example.invalid/" + key + "?sig=1", nil
}

func validResume() resume.Request {
	r := resume.NewEmpty()
	r.FullName = "Ada Lovelace"
	r.Position = "Analyst"
	r.Summary = "Writes programs for engines that do not exist yet."
	r.Contacts.Email = "ada@example.com"
	r.Skills = []string{"Mathematics"}
	r.Experience = []resume.ExperienceEntry{{Company: "Engine Co", Position: "Programmer", Bullets: []string{"Loops"}}}
	return r
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

type testServer struct {
	router   *gin.Engine
	renderer *fakeRenderer
	db       *gorm.DB
	store    *database.JobStore
	queue    *fakeQueue
	signer   *fakeSigner
}

type serverOption func(*Routes, *testServer)

func withScanner(s scan.Scanner) serverOption {
	return func(r *Routes, _ *testServer) {
		r.Documents.scanner = s
	}
}

func withCache(c DocumentCache) serverOption {
	return func(r *Routes, _ *testServer) {
		r.Documents.cache = c
	}
}

func withJobs(t *testing.T) serverOption {
	return func(r *Routes, ts *testServer) {
		db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db))
		ts.db = db
		ts.store = database.NewJobStore(db)
		ts.queue = &fakeQueue{}
		ts.signer = &fakeSigner{}
		r.Jobs = NewJobHandler(ts.store, ts.queue, ts.signer, nil, time.Hour, 3)
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	ts := &testServer{renderer: &fakeRenderer{pdf: []byte("%PDF-1.7 test")}}
	routes := Routes{
		Documents:    NewDocumentHandler(ts.renderer, nil, nil),
		MaxBodyBytes: 64 * 1024,
	}
	for _, opt := range opts {
		opt(&routes, ts)
	}
	ts.router = NewRouter(nil)
	RegisterRoutes(ts.router, routes)
	return ts
}

func (ts *testServer) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postJSON(path string, body []byte) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, path, "application/json", body)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errcode.Response {
	t.Helper()
	var body errcode.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestGeneratePDF_Success(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON("/api/v1/resume/pdf", mustJSON(t, validResume()))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="resume.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7 test", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestGeneratePDF_RequestErrors(t *testing.T) {
	missingPhoto := strings.Replace(string(mustJSON(t, validResume())), `,"photo":null`, "", 1)
	blankName := validResume()
	blankName.FullName = "   "

	cases := []struct {
		name        string
		contentType string
		body        []byte
		status      int
		code        string
	}{
		{"wrong content type", "text/plain", mustJSON(t, validResume()), http.StatusUnsupportedMediaType, errcode.UnsupportedMediaType},
		{"not json", "application/json", []byte("{nope"), http.StatusBadRequest, errcode.InvalidJSON},
		{"missing photo key", "application/json", []byte(missingPhoto), http.StatusBadRequest, errcode.InvalidPayload},
		{"unknown field", "application/json", []byte(strings.Replace(string(mustJSON(t, validResume())), `{`, `{"age":3,`, 1)), http.StatusBadRequest, errcode.InvalidPayload},
		{"blank name", "application/json", mustJSON(t, blankName), http.StatusBadRequest, errcode.ValidationError},
		{"too large", "application/json", bytes.Repeat([]byte(" "), 64*1024+1), http.StatusRequestEntityTooLarge, errcode.PayloadTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do(http.MethodPost, "/api/v1/resume/pdf", tc.contentType, tc.body)

			require.Equal(t, tc.status, w.Code, w.Body.String())
			body := decodeError(t, w)
			assert.Equal(t, tc.code, body.Error)
			assert.NotEmpty(t, body.Message)
			assert.Zero(t, ts.renderer.calls)
		})
	}
}

func TestGeneratePDF_ValidationDetails(t *testing.T) {
	ts := newTestServer(t)
	req := validResume()
	req.FullName = ""
	req.Contacts.Email = "not-an-email"

	w := ts.postJSON("/api/v1/resume/pdf", mustJSON(t, req))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errcode.ValidationError, body.Error)
	assert.Equal(t, "Invalid resume data", body.Message)
	assert.Equal(t, "fullName is required", body.Details["fullName"])
	assert.Equal(t, "Invalid email format", body.Details["contacts.email"])
}

func TestGeneratePDF_RenderFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.renderer.err = errors.New("chromium exited")

	w := ts.postJSON("/api/v1/resume/pdf", mustJSON(t, validResume()))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, errcode.PDFGenerationFailed, body.Error)
	assert.Equal(t, "Failed to generate PDF", body.Message)
}

func TestGeneratePDF_PhotoScan(t *testing.T) {
	req := validResume()
	req.Photo = &resume.Photo{MimeType: "image/png", Data: "iVBORw0KGgo="}

	t.Run("infected", func(t *testing.T) {
		ts := newTestServer(t, withScanner(fakeScanner{err: scan.ErrInfected}))
		w := ts.postJSON("/api/v1/resume/pdf", mustJSON(t, req))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errcode.PhotoRejected, decodeError(t, w).Error)
		assert.Zero(t, ts.renderer.calls)
	})

	t.Run("scanner unavailable", func(t *testing.T) {
		ts := newTestServer(t, withScanner(fakeScanner{err: errors.New("dial tcp: refused")}))
		w := ts.postJSON("/api/v1/resume/pdf", mustJSON(t, req))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, errcode.InternalError, decodeError(t, w).Error)
	})

	t.Run("clean", func(t *testing.T) {
		ts := newTestServer(t, withScanner(fakeScanner{}))
		w := ts.postJSON("/api/v1/resume/pdf", mustJSON(t, req))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
}

func TestGeneratePDF_UsesCache(t *testing.T) {
	c := &fakeCache{}
	ts := newTestServer(t, withCache(c))
	body := mustJSON(t, validResume())

	require.Equal(t, http.StatusOK, ts.postJSON("/api/v1/resume/pdf", body).Code)
	w := ts.postJSON("/api/v1/resume/pdf", body)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "%PDF-1.7 test", w.Body.String())
	assert.Equal(t, 1, ts.renderer.calls)
	assert.Len(t, c.docs, 1)
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "resume-render", health["service"])

	w = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errcode.NotFound, decodeError(t, w).Error)

	w = ts.do(http.MethodGet, "/api/v1/resume/pdf", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, errcode.MethodNotAllowed, decodeError(t, w).Error)
}

func TestJobs_Lifecycle(t *testing.T) {
	ts := newTestServer(t, withJobs(t))

	w := ts.postJSON("/api/v1/resume/pdf/jobs", mustJSON(t, validResume()))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var created struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Status)
	_, err := uuid.Parse(created.JobID)
	require.NoError(t, err)

	require.Len(t, ts.queue.tasks, 1)
	assert.Equal(t, tasks.TypeRenderDocument, ts.queue.tasks[0].Type())
	payload, err := tasks.ParseRenderPayload(ts.queue.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, created.JobID, payload.JobID)

	w = ts.do(http.MethodGet, "/api/v1/resume/pdf/jobs/"+created.JobID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "pending", status["status"])
	assert.NotContains(t, status, "download_url")

	require.NoError(t, ts.store.MarkCompleted(context.Background(), created.JobID, "generated-resumes/"+created.JobID+".pdf"))

	w = ts.do(http.MethodGet, "/api/v1/resume/pdf/jobs/"+created.JobID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status = map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "completed", status["status"])
	assert.Equal(t, "https://files.example.invalid/generated-resumes/"+created.JobID+".pdf?sig=1", status["download_url"])
	assert.Contains(t, status, "expires_at")
}

func TestJobs_Errors(t *testing.T) {
	ts := newTestServer(t, withJobs(t))

	w := ts.do(http.MethodGet, "/api/v1/resume/pdf/jobs/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/resume/pdf/jobs/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errcode.NotFound, decodeError(t, w).Error)

	w = ts.postJSON("/api/v1/resume/pdf/jobs", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.queue.tasks)
}

func TestJobs_EnqueueFailureMarksJobFailed(t *testing.T) {
	ts := newTestServer(t, withJobs(t))
	ts.queue.err = errors.New("redis unavailable")

	w := ts.postJSON("/api/v1/resume/pdf/jobs", mustJSON(t, validResume()))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var jobs []database.RenderJob
	require.NoError(t, ts.db.Find(&jobs).Error)
	require.Len(t, jobs, 1)
	assert.Equal(t, database.JobFailed, jobs[0].Status)
}

func TestJobs_CompletedJobWithMissingDocument(t *testing.T) {
	ts := newTestServer(t, withJobs(t))

	w := ts.postJSON("/api/v1/resume/pdf/jobs", mustJSON(t, validResume()))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var created struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NoError(t, ts.store.MarkCompleted(context.Background(), created.JobID, storage.DocumentObjectKey(created.JobID)))

	ts.signer.statErr = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

	w = ts.do(http.MethodGet, "/api/v1/resume/pdf/jobs/"+created.JobID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "failed", status["status"])
	assert.Equal(t, missingDocumentMessage, status["error_message"])
	assert.NotContains(t, status, "download_url")

	job, err := ts.store.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, database.JobFailed, job.Status)
}

func TestJobs_StatFailureIsInternalError(t *testing.T) {
	ts := newTestServer(t, withJobs(t))

	w := ts.postJSON("/api/v1/resume/pdf/jobs", mustJSON(t, validResume()))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var created struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NoError(t, ts.store.MarkCompleted(context.Background(), created.JobID, storage.DocumentObjectKey(created.JobID)))

	ts.signer.statErr = errors.New("connection refused")

	w = ts.do(http.MethodGet, "/api/v1/resume/pdf/jobs/"+created.JobID, "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errcode.InternalError, decodeError(t, w).Error)

	job, err := ts.store.Get(context.Background(), created.JobID)
	require.NoError(t, err)
	assert.Equal(t, database.JobCompleted, job.Status)
}

func TestJobsRoutesDisabled(t *testing.T) {
	ts := newTestServer(t)
	w := ts.postJSON("/api/v1/resume/pdf/jobs", mustJSON(t, validResume()))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// docgen.Client 与服务端的端到端契约。
func TestDocgenClientAgainstRouter(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	t.Cleanup(srv.Close)

	client, err := docgen.NewClient(docgen.EndpointURL(srv.URL, docgen.DefaultPath))
	require.NoError(t, err)

	doc, err := client.GenerateDocument(context.Background(), validResume())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 test"), doc)

	invalid := validResume()
	invalid.Summary = ""
	_, err = client.GenerateDocument(context.Background(), invalid)
	require.Error(t, err)
	assert.True(t, docgen.IsGenerationError(err))
	assert.Equal(t, "Invalid resume data", err.Error())

	ts.renderer.err = errors.New("boom")
	_, err = client.GenerateDocument(context.Background(), validResume())
	require.Error(t, err)
	assert.Equal(t, "Failed to generate PDF", err.Error())
}
