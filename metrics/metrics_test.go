package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/statekit/errors"
	"github.com/jmgilman/go/statekit/logging"
	"github.com/jmgilman/go/statekit/storage"
	"github.com/jmgilman/go/statekit/store"
)

func TestCollector_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ErrorHandled(errors.New(errors.CodeServer, "boom"), errors.ErrorContext{})
	c.ErrorHandled(errors.New(errors.CodeServer, "boom"), errors.ErrorContext{})
	c.ActionCompleted("ProjectsStore", store.OutcomeSuccess, 250*time.Millisecond)
	c.ActionRetried("ProjectsStore", 1)
	c.StorageOperation("get", storage.ResultHit)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("SERVER_ERROR", "critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("ProjectsStore", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retriesTotal.WithLabelValues("ProjectsStore")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storageOperations.WithLabelValues("get", "hit")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.actionDuration))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCollector_NilRegisterer(t *testing.T) {
	c := New(nil)
	c.StorageOperation("set", storage.ResultOK)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storageOperations.WithLabelValues("set", "ok")))
}

func TestCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestCollector_Wired(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := New(reg)

	h := errors.NewHandler(errors.WithLogger(logging.Discard()), errors.WithObserver(c))
	s := store.New[string](store.WithName("SupportStore"), store.WithHandler(h), store.WithObserver(c))
	st := storage.New(ctx, storage.NewMemoryMedium(), storage.WithHandler(h), storage.WithObserver(c))

	_ = s.ExecuteAction(ctx, errors.ErrorContext{}, func(context.Context) error {
		return errors.NewStatusError(401, "Unauthorized")
	})
	storage.Set(ctx, st, storage.KeyTheme, "dark")
	storage.Get[string](ctx, st, storage.KeyTheme)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.errorsTotal.WithLabelValues("UNAUTHORIZED", "warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionsTotal.WithLabelValues("SupportStore", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storageOperations.WithLabelValues("set", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storageOperations.WithLabelValues("get", "hit")))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.StorageOperation("clear", storage.ResultOK)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body),
		`statekit_storage_operations_total{operation="clear",result="ok"} 1`)
}
