package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runRecord struct {
	jobType string
	status  string
	details string
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[string]*runRecord
	n    int
}

func (f *fakeRuns) Start(_ context.Context, _, jobType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = map[string]*runRecord{}
	}
	f.n++
	id := string(rune('a' + f.n))
	f.runs[id] = &runRecord{jobType: jobType, status: "running"}
	return id, nil
}

func (f *fakeRuns) Finish(_ context.Context, runID, status string, details []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[runID].status = status
	f.runs[runID].details = string(details)
	return nil
}

func (f *fakeRuns) only(t *testing.T) runRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.runs, 1)
	for _, rec := range f.runs {
		return *rec
	}
	return runRecord{}
}

type fakeReminders struct {
	sent int
	err  error
}

func (f fakeReminders) SendDraftReminders(context.Context, int) (int, error) {
	return f.sent, f.err
}

func TestRunNowRecordsCompletedRun(t *testing.T) {
	runs := &fakeRuns{}
	svc := New(runs)

	details, err := svc.RunNow(context.Background(), JobDraftReminders, "", ReminderJob(fakeReminders{sent: 3}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"remindersSent": 3}, details)

	rec := runs.only(t)
	assert.Equal(t, JobDraftReminders, rec.jobType)
	assert.Equal(t, "completed", rec.status)
	assert.JSONEq(t, `{"remindersSent":3}`, rec.details)
}

func TestRunNowRecordsFailure(t *testing.T) {
	runs := &fakeRuns{}
	svc := New(runs)

	_, err := svc.RunNow(context.Background(), JobDraftReminders, "", ReminderJob(fakeReminders{err: errors.New("db down")}))
	assert.EqualError(t, err, "db down")
	assert.Equal(t, "failed", runs.only(t).status)
}

func TestWorkerDrainsQueue(t *testing.T) {
	runs := &fakeRuns{}
	svc := New(runs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, nil, 0)

	done := make(chan struct{})
	require.True(t, svc.Enqueue("probe", "", func(context.Context) (any, error) {
		close(done)
		return nil, nil
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
}
