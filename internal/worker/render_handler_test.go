package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumeRender/internal/database"
	"resumeRender/internal/resume"
	"resumeRender/internal/tasks"
)

type fakeRenderer struct {
	pdf  []byte
	err  error
	seen []resume.Request
}

func (r *fakeRenderer) Render(_ context.Context, req resume.Request) ([]byte, error) {
	r.seen = append(r.seen, req)
	return r.pdf, r.err
}

type fakeUploader struct {
	uploaded map[string][]byte
	deleted  []string
	err      error
}

func (u *fakeUploader) UploadDocument(_ context.Context, key string, data []byte) (*minio.UploadInfo, error) {
	if u.err != nil {
		return nil, u.err
	}
	if u.uploaded == nil {
		u.uploaded = map[string][]byte{}
	}
	u.uploaded[key] = data
	return &minio.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func (u *fakeUploader) DeleteObject(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	delete(u.uploaded, key)
	return nil
}

// completeFailingStore 模拟上传成功后状态落库失败。
type completeFailingStore struct {
	*database.JobStore
	err error
}

func (s *completeFailingStore) MarkCompleted(context.Context, string, string) error {
	return s.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []JobEvent
}

func (n *fakeNotifier) Notify(_ context.Context, event JobEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func newTestStore(t *testing.T) *database.JobStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return database.NewJobStore(db)
}

func seedJob(t *testing.T, store *database.JobStore, payload []byte) *database.RenderJob {
	t.Helper()
	job := &database.RenderJob{
		ID:            uuid.NewString(),
		Payload:       datatypes.JSON(payload),
		CorrelationID: "corr-1",
	}
	require.NoError(t, store.Create(context.Background(), job))
	return job
}

func resumePayload(t *testing.T) []byte {
	t.Helper()
	req := resume.NewEmpty()
	req.FullName = "Ada Lovelace"
	req.Position = "Engineer"
	req.Summary = "Summary"
	data, err := json.Marshal(req)
	require.NoError(t, err)
	return data
}

func renderTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	task, err := tasks.NewRenderTask(jobID, "corr-1")
	require.NoError(t, err)
	return task
}

func TestRenderTaskHandler_Success(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := seedJob(t, store, resumePayload(t))

	renderer := &fakeRenderer{pdf: []byte("%PDF-1.7")}
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	h := NewRenderTaskHandler(store, renderer, uploader, notifier, nil)

	require.NoError(t, h.ProcessTask(ctx, renderTask(t, job.ID)))

	require.Len(t, renderer.seen, 1)
	assert.Equal(t, "Ada Lovelace", renderer.seen[0].FullName)

	key := "generated-resumes/" + job.ID + ".pdf"
	assert.Equal(t, []byte("%PDF-1.7"), uploader.uploaded[key])

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobCompleted, got.Status)
	assert.Equal(t, key, got.ObjectKey)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, database.JobCompleted, notifier.events[0].Status)
	assert.Equal(t, job.ID, notifier.events[0].JobID)
}

func TestRenderTaskHandler_MissingJobIsSkipped(t *testing.T) {
	renderer := &fakeRenderer{pdf: []byte("%PDF")}
	h := NewRenderTaskHandler(newTestStore(t), renderer, &fakeUploader{}, nil, nil)

	require.NoError(t, h.ProcessTask(context.Background(), renderTask(t, uuid.NewString())))
	assert.Empty(t, renderer.seen)
}

func TestRenderTaskHandler_InvalidTaskPayloadSkipsRetry(t *testing.T) {
	h := NewRenderTaskHandler(newTestStore(t), &fakeRenderer{}, &fakeUploader{}, nil, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeRenderDocument, []byte("nope")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRenderTaskHandler_RenderFailure(t *testing.T) {
	boom := errors.New("browser crashed")

	t.Run("retryable attempt leaves job processing", func(t *testing.T) {
		ctx := context.Background()
		store := newTestStore(t)
		job := seedJob(t, store, resumePayload(t))

		h := NewRenderTaskHandler(store, &fakeRenderer{err: boom}, &fakeUploader{}, nil, nil)
		h.finalAttempt = func(context.Context) bool { return false }

		err := h.ProcessTask(ctx, renderTask(t, job.ID))
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, database.JobProcessing, got.Status)
	})

	t.Run("final attempt marks job failed", func(t *testing.T) {
		ctx := context.Background()
		store := newTestStore(t)
		job := seedJob(t, store, resumePayload(t))
		notifier := &fakeNotifier{}

		h := NewRenderTaskHandler(store, &fakeRenderer{err: boom}, &fakeUploader{}, notifier, nil)
		h.finalAttempt = func(context.Context) bool { return true }

		err := h.ProcessTask(ctx, renderTask(t, job.ID))
		assert.ErrorIs(t, err, boom)

		got, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, database.JobFailed, got.Status)
		assert.Equal(t, "browser crashed", got.ErrorMessage)

		require.Len(t, notifier.events, 1)
		assert.Equal(t, database.JobFailed, notifier.events[0].Status)
	})
}

func TestRenderTaskHandler_UploadFailureOnFinalAttempt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := seedJob(t, store, resumePayload(t))

	h := NewRenderTaskHandler(store, &fakeRenderer{pdf: []byte("%PDF")}, &fakeUploader{err: errors.New("minio down")}, nil, nil)
	h.finalAttempt = func(context.Context) bool { return true }

	require.Error(t, h.ProcessTask(ctx, renderTask(t, job.ID)))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobFailed, got.Status)
	assert.Equal(t, "minio down", got.ErrorMessage)
}

func TestRenderTaskHandler_CorruptStoredPayload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := seedJob(t, store, []byte(`{"skills":"not-a-list"}`))

	renderer := &fakeRenderer{pdf: []byte("%PDF")}
	h := NewRenderTaskHandler(store, renderer, &fakeUploader{}, nil, nil)

	err := h.ProcessTask(ctx, renderTask(t, job.ID))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, renderer.seen)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobFailed, got.Status)
}

func TestRenderTaskHandler_FinishedJobIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := seedJob(t, store, resumePayload(t))
	require.NoError(t, store.MarkCompleted(ctx, job.ID, "generated-resumes/x.pdf"))

	renderer := &fakeRenderer{pdf: []byte("%PDF")}
	h := NewRenderTaskHandler(store, renderer, &fakeUploader{}, nil, nil)

	require.NoError(t, h.ProcessTask(ctx, renderTask(t, job.ID)))
	assert.Empty(t, renderer.seen)
}

func TestJobChannel(t *testing.T) {
	assert.Equal(t, "render_job:abc", JobChannel("abc"))
}

func TestRenderTaskHandler_CompleteFailureRemovesUpload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := seedJob(t, store, resumePayload(t))

	dbErr := errors.New("database is locked")
	uploader := &fakeUploader{}
	notifier := &fakeNotifier{}
	h := NewRenderTaskHandler(&completeFailingStore{JobStore: store, err: dbErr}, &fakeRenderer{pdf: []byte("%PDF")}, uploader, notifier, nil)

	err := h.ProcessTask(ctx, renderTask(t, job.ID))
	require.ErrorIs(t, err, dbErr)

	key := "generated-resumes/" + job.ID + ".pdf"
	assert.Equal(t, []string{key}, uploader.deleted)
	assert.NotContains(t, uploader.uploaded, key)
	assert.Empty(t, notifier.events)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, database.JobProcessing, got.Status)
}
