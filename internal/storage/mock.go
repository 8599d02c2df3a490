package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mfleur/polyleg/internal/models"
)

// MockStore is an in-memory Store for tests and wiring checks. A single
// mutex gives it the same atomic check-and-create the SQLite store has.
type MockStore struct {
	mu         sync.Mutex
	tasks      map[string]*models.TradingTask
	bots       map[string]*models.BotConfig
	strategies map[string]*models.StrategyConfig

	// FailWrites makes every mutation return an error, for exercising the
	// loop's fatal persistence path.
	FailWrites bool
}

var _ Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		tasks:      make(map[string]*models.TradingTask),
		bots:       make(map[string]*models.BotConfig),
		strategies: make(map[string]*models.StrategyConfig),
	}
}

func (m *MockStore) CreateTask(_ context.Context, task *models.TradingTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("mock store: writes disabled")
	}
	for _, t := range m.tasks {
		if t.BotID == task.BotID && t.IsActive {
			return ErrTaskAlreadyRunning
		}
	}
	clone := *task
	m.tasks[task.ID] = &clone
	return nil
}

func (m *MockStore) GetTask(_ context.Context, id string) (*models.TradingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MockStore) SetTaskActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("mock store: writes disabled")
	}
	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.IsActive = active
	if active {
		t.EndTime = time.Time{}
	} else {
		t.EndTime = time.Now().UTC()
	}
	return nil
}

func (m *MockStore) AttachQueueID(_ context.Context, id, queueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("mock store: writes disabled")
	}
	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.QueueTaskID = queueID
	return nil
}

func (m *MockStore) ListActiveTasks(_ context.Context, userID string) ([]*models.TradingTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TradingTask
	for _, t := range m.tasks {
		if t.IsActive && (userID == "" || t.UserID == userID) {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockStore) RecordTradeResult(_ context.Context, id string, profit float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("mock store: writes disabled")
	}
	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.TotalProfit += profit
	if profit >= 0 {
		t.WinTrades++
	} else {
		t.LossTrades++
	}
	return nil
}

func (m *MockStore) GetBotConfig(_ context.Context, id string) (*models.BotConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bot, ok := m.bots[id]
	if !ok {
		return nil, fmt.Errorf("%w: bot %s", ErrConfigNotFound, id)
	}
	clone := *bot
	return &clone, nil
}

func (m *MockStore) GetStrategyConfig(_ context.Context, id string) (*models.StrategyConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	strat, ok := m.strategies[id]
	if !ok {
		return nil, fmt.Errorf("%w: strategy %s", ErrConfigNotFound, id)
	}
	clone := *strat
	return &clone, nil
}

func (m *MockStore) PutBotConfig(_ context.Context, bot *models.BotConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *bot
	m.bots[bot.ID] = &clone
	return nil
}

func (m *MockStore) PutStrategyConfig(_ context.Context, strategy *models.StrategyConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *strategy
	m.strategies[strategy.ID] = &clone
	return nil
}

func (m *MockStore) Close() error { return nil }
