package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfleur/polyleg/internal/models"
	"github.com/mfleur/polyleg/internal/storage"
	"github.com/mfleur/polyleg/internal/task"
)

func newTestServer(t *testing.T, authToken string) (*Server, *task.InProcessQueue) {
	t.Helper()
	store := storage.NewMockStore()
	ctx := context.Background()
	require.NoError(t, store.PutStrategyConfig(ctx, &models.StrategyConfig{
		ID: "strat-1", UserID: "user-1", Symbol: "SPY",
		Legs: []models.LegConfig{{OptionType: "PUT", LongOrShort: "SHORT", SizeRatio: 1}},
	}))
	require.NoError(t, store.PutBotConfig(ctx, &models.BotConfig{
		ID: "bot-1", UserID: "user-1", StrategyID: "strat-1",
	}))

	queue := task.NewInProcessQueue()
	// The API tests only need a job that parks until revoked.
	queue.Register(task.JobTradingLoop, func(ctx context.Context, _ map[string]string) error {
		<-ctx.Done()
		return nil
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	orch := task.NewOrchestrator(store, queue, nil, nil)
	return NewServer(Config{Port: 0, AuthToken: authToken}, orch, logger), queue
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStartStopStatusRoundTrip(t *testing.T) {
	s, queue := newTestServer(t, "")

	rec := doRequest(t, s, http.MethodPost, "/api/bots/bot-1/start")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started models.TradingTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "bot-1", started.BotID)
	assert.True(t, started.IsActive)

	rec = doRequest(t, s, http.MethodPost, "/api/bots/bot-1/start")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/tasks/"+started.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var status task.TaskStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, started.ID, status.Task.ID)

	rec = doRequest(t, s, http.MethodGet, "/api/users/user-1/tasks")
	require.Equal(t, http.StatusOK, rec.Code)
	var active []models.TradingTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.Len(t, active, 1)

	rec = doRequest(t, s, http.MethodPost, "/api/tasks/"+started.ID+"/stop")
	require.Equal(t, http.StatusOK, rec.Code)
	queue.Wait()
}

func TestNotFoundMapping(t *testing.T) {
	s, _ := newTestServer(t, "")

	assert.Equal(t, http.StatusNotFound,
		doRequest(t, s, http.MethodPost, "/api/bots/ghost/start").Code)
	assert.Equal(t, http.StatusNotFound,
		doRequest(t, s, http.MethodGet, "/api/tasks/ghost").Code)
	assert.Equal(t, http.StatusNotFound,
		doRequest(t, s, http.MethodPost, "/api/tasks/ghost/stop").Code)
}

func TestAuthToken(t *testing.T) {
	s, _ := newTestServer(t, "secret")

	rec := doRequest(t, s, http.MethodGet, "/api/tasks/any")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/any", nil)
	req.Header.Set("X-Auth-Token", "secret")
	out := httptest.NewRecorder()
	s.Handler().ServeHTTP(out, req)
	assert.NotEqual(t, http.StatusUnauthorized, out.Code)

	// Health stays open for probes.
	assert.Equal(t, http.StatusOK, doRequest(t, s, http.MethodGet, "/health").Code)
}
