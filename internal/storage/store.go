// Package storage persists trading tasks and bot/strategy configuration.
// The store is the authority on task liveness: the single-active-task rule
// is enforced here, transactionally, not by the orchestrator.
package storage

import (
	"context"

	"github.com/mfleur/polyleg/internal/models"
)

// Store is the persistence boundary for the trading engine.
type Store interface {
	// CreateTask inserts a new active task. It fails with
	// ErrTaskAlreadyRunning when the bot already has an active one; the
	// check and the insert are atomic.
	CreateTask(ctx context.Context, task *models.TradingTask) error

	// GetTask returns the task row, or ErrTaskNotFound.
	GetTask(ctx context.Context, id string) (*models.TradingTask, error)

	// SetTaskActive flips the active flag. Deactivating stamps end_time.
	SetTaskActive(ctx context.Context, id string, active bool) error

	// AttachQueueID records the queue job id dispatched for the task.
	AttachQueueID(ctx context.Context, id, queueID string) error

	// ListActiveTasks returns the user's active tasks. An empty userID
	// lists every user's.
	ListActiveTasks(ctx context.Context, userID string) ([]*models.TradingTask, error)

	// RecordTradeResult adds a closed trade's profit to the task totals and
	// bumps the win or loss counter.
	RecordTradeResult(ctx context.Context, id string, profit float64) error

	// GetBotConfig returns a bot record, or ErrConfigNotFound.
	GetBotConfig(ctx context.Context, id string) (*models.BotConfig, error)

	// GetStrategyConfig returns a strategy record, or ErrConfigNotFound.
	GetStrategyConfig(ctx context.Context, id string) (*models.StrategyConfig, error)

	// PutBotConfig and PutStrategyConfig upsert records. The engine never
	// calls them; they exist for seeding and the control API.
	PutBotConfig(ctx context.Context, bot *models.BotConfig) error
	PutStrategyConfig(ctx context.Context, strategy *models.StrategyConfig) error

	Close() error
}
