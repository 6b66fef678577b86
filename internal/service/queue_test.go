package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mayurbijarniya/nutriai/internal/ai"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T, workers, maxJobs int, handler http.HandlerFunc) *JobQueue {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	viper.Set("ai.base_url", ts.URL)
	viper.Set("ai.api_key", "test-key")
	viper.Set("ai.model", "gemini-2.5-pro")
	viper.Set("ai.search_model", "gemini-2.5-flash-lite")
	viper.Set("ai.timeout_seconds", 5)
	viper.Set("ai.workers", workers)
	viper.Set("ai.max_jobs", maxJobs)

	return NewJobQueue(ai.NewClient())
}

func TestJobQueueRunsTextJobs(t *testing.T) {
	q := testQueue(t, 2, 4, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"lean protein"}]}}]}`))
	})
	q.StartWorkerPool()

	job := &AIJob{
		ID:     "j1",
		Scope:  "user:u1",
		Prompt: "describe chicken breast",
		Ctx:    context.Background(),
		Done:   make(chan error, 1),
	}
	require.NoError(t, q.Enqueue(job))

	select {
	case err := <-job.Done:
		require.NoError(t, err)
		assert.Equal(t, "lean protein", job.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}
}

func TestJobQueueRoutesImageJobsToVisionModel(t *testing.T) {
	var gotPath string

	q := testQueue(t, 1, 4, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a salad"}]}}]}`))
	})
	q.StartWorkerPool()

	job := &AIJob{
		ID:     "j2",
		Scope:  "guest:abc",
		Prompt: "analyze",
		Image:  []byte{0xFF, 0xD8, 0xFF},
		Ctx:    context.Background(),
		Done:   make(chan error, 1),
	}
	require.NoError(t, q.Enqueue(job))

	select {
	case err := <-job.Done:
		require.NoError(t, err)
		assert.Contains(t, gotPath, "gemini-2.5-pro")
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}
}

func TestJobQueueFull(t *testing.T) {
	// No workers, so nothing drains the queue
	q := testQueue(t, 0, 1, func(w http.ResponseWriter, r *http.Request) {})

	first := &AIJob{ID: "a", Ctx: context.Background(), Done: make(chan error, 1)}
	require.NoError(t, q.Enqueue(first))

	second := &AIJob{ID: "b", Ctx: context.Background(), Done: make(chan error, 1)}
	err := q.Enqueue(second)

	require.Error(t, err)
	assert.Equal(t, "job queue full", err.Error())
	assert.EqualValues(t, 1, q.Running())
}

func TestJobQueueReportsModelErrors(t *testing.T) {
	q := testQueue(t, 1, 2, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	q.StartWorkerPool()

	job := &AIJob{ID: "j3", Prompt: "hi", Ctx: context.Background(), Done: make(chan error, 1)}
	require.NoError(t, q.Enqueue(job))

	select {
	case err := <-job.Done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}
}
