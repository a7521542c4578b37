package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding/internal/platform/jobs"
)

type countingReminders struct {
	calls int
	err   error
}

func (c *countingReminders) SendDraftReminders(context.Context, int) (int, error) {
	c.calls++
	return 3, c.err
}

func TestReminderRunnerRunsThroughJobs(t *testing.T) {
	reminders := &countingReminders{}
	runner := reminderRunner{jobs: jobs.New(nil), reminders: reminders}

	details, err := runner.RunReminders(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, reminders.calls)
	assert.Equal(t, map[string]any{"remindersSent": 3}, details)

	reminders.err = errors.New("smtp down")
	_, err = runner.RunReminders(context.Background(), "tenant-1")
	assert.EqualError(t, err, "smtp down")
}

func TestEphemeralSecretIsRandom(t *testing.T) {
	a, b := ephemeralSecret(), ephemeralSecret()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
