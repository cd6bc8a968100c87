package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	err     error
	stopped chan struct{}
}

func newFakeRunner(err error) *fakeRunner {
	return &fakeRunner{err: err, stopped: make(chan struct{})}
}

func (r *fakeRunner) Run(ctx context.Context) error {
	defer close(r.stopped)
	if r.err != nil {
		return r.err
	}
	<-ctx.Done()
	return nil
}

func newTestApp(t *testing.T, servers map[string]runner) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	return &App{config: cfg, logger: logging.Nop(), db: db, servers: servers}, mock
}

func runWithTimeout(t *testing.T, ctx context.Context, app *App) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_StopsAllServersWhenOneFails(t *testing.T) {
	healthy := newFakeRunner(nil)
	app, mock := newTestApp(t, map[string]runner{
		"ok":     healthy,
		"broken": newFakeRunner(errors.New("address in use")),
	})

	runWithTimeout(t, context.Background(), app)

	select {
	case <-healthy.stopped:
	default:
		t.Fatal("healthy server still running")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApp_StopsOnContextCancel(t *testing.T) {
	a, b := newFakeRunner(nil), newFakeRunner(nil)
	app, mock := newTestApp(t, map[string]runner{"a": a, "b": b})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	runWithTimeout(t, ctx, app)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PasswordHashAlgorithm = "md5"

	_, err := NewApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}
