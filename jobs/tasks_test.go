package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/authz"
)

type fakeExpiringSource struct {
	gotWindow time.Duration
	rows      []authz.RoleAssignment
	err       error
}

func (f *fakeExpiringSource) ListExpiringWithin(_ context.Context, _ time.Time, window time.Duration) ([]authz.RoleAssignment, error) {
	f.gotWindow = window
	return f.rows, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpiryDigestReportsWithoutMutating(t *testing.T) {
	soon := time.Now().Add(12 * time.Hour)
	source := &fakeExpiringSource{rows: []authz.RoleAssignment{
		{ID: "a-1", ActorID: "emp-1", RoleID: "r-1", ExpiresAt: &soon, IsActive: true},
	}}
	handler := NewExpiryDigestHandler(source, discardLogger())

	task, err := NewExpiryDigestTask(ExpiryDigestPayload{Window: 24 * time.Hour})
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))
	require.Equal(t, 24*time.Hour, source.gotWindow)

	// The digest is read-only: the source row keeps its active flag.
	require.True(t, source.rows[0].IsActive)
}

func TestExpiryDigestDefaultsWindow(t *testing.T) {
	source := &fakeExpiringSource{}
	handler := NewExpiryDigestHandler(source, discardLogger())

	task, err := NewExpiryDigestTask(ExpiryDigestPayload{})
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))
	require.Equal(t, 72*time.Hour, source.gotWindow)
}

func TestExpiryDigestSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewExpiryDigestHandler(&fakeExpiringSource{}, discardLogger())

	task := asynq.NewTask(TaskAssignmentExpiryDigest, []byte("{not json"))
	err := handler.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestExpiryDigestPropagatesSourceErrors(t *testing.T) {
	source := &fakeExpiringSource{err: errors.New("db down")}
	handler := NewExpiryDigestHandler(source, discardLogger())

	task, err := NewExpiryDigestTask(ExpiryDigestPayload{Window: time.Hour})
	require.NoError(t, err)
	require.Error(t, handler.ProcessTask(context.Background(), task))
}
