package task

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mfleur/polyleg/internal/models"
	"github.com/mfleur/polyleg/internal/storage"
)

// JobTradingLoop is the queue job name for a bot's trading loop.
const JobTradingLoop = "trading_loop"

// Orchestrator owns the task lifecycle: Idle -> Running -> Stopped/Aborted.
// It never caches task state; every operation queries the store.
type Orchestrator struct {
	store  storage.Store
	queue  Queue
	logger *log.Logger
}

// TaskStatus joins the persisted task row with the queue runtime's view.
type TaskStatus struct {
	Task     *models.TradingTask `json:"task"`
	JobState JobStatus           `json:"job_state"`
}

// NewOrchestrator wires the orchestrator and registers the loop job on the
// queue when it is an in-process one.
func NewOrchestrator(store storage.Store, queue Queue, loop *Loop, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	if q, ok := queue.(*InProcessQueue); ok && loop != nil {
		q.Register(JobTradingLoop, func(ctx context.Context, args map[string]string) error {
			err := loop.Run(ctx, args["bot_id"], args["task_id"])
			if err != nil {
				// The loop exited without a cooperative stop; make sure the
				// row does not stay active.
				if derr := store.SetTaskActive(context.Background(), args["task_id"], false); derr != nil {
					logger.Printf("task %s: deactivate after failure: %v", args["task_id"], derr)
				}
			}
			return err
		})
	}
	return &Orchestrator{store: store, queue: queue, logger: logger}
}

// Start creates an active task for the bot and dispatches its loop.
// A bot with a running task gets storage.ErrTaskAlreadyRunning.
func (o *Orchestrator) Start(ctx context.Context, botID string) (*models.TradingTask, error) {
	bot, err := o.store.GetBotConfig(ctx, botID)
	if err != nil {
		return nil, fmt.Errorf("start bot %s: %w", botID, err)
	}
	strat, err := o.store.GetStrategyConfig(ctx, bot.StrategyID)
	if err != nil {
		return nil, fmt.Errorf("start bot %s: %w", botID, err)
	}

	t := &models.TradingTask{
		ID:        uuid.NewString(),
		BotID:     botID,
		UserID:    bot.UserID,
		Symbol:    strat.Symbol,
		IsActive:  true,
		StartTime: time.Now().UTC(),
	}
	if err := o.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	queueID, err := o.queue.Enqueue(JobTradingLoop, map[string]string{
		"bot_id":  botID,
		"task_id": t.ID,
	})
	if err != nil {
		if derr := o.store.SetTaskActive(ctx, t.ID, false); derr != nil {
			o.logger.Printf("task %s: rollback after enqueue failure: %v", t.ID, derr)
		}
		return nil, fmt.Errorf("dispatch loop for bot %s: %w", botID, err)
	}
	if err := o.store.AttachQueueID(ctx, t.ID, queueID); err != nil {
		o.logger.Printf("task %s: attach queue id: %v", t.ID, err)
	}
	t.QueueTaskID = queueID

	o.logger.Printf("started task %s for bot %s (job %s)", t.ID, botID, queueID)
	return t, nil
}

// Stop deactivates the task and asks the queue to terminate the job. The
// revoke is best-effort; the loop's own flag re-read is what stops it.
func (o *Orchestrator) Stop(ctx context.Context, taskID string) error {
	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.IsActive {
		if err := o.store.SetTaskActive(ctx, taskID, false); err != nil {
			return fmt.Errorf("deactivate task %s: %w", taskID, err)
		}
	}
	if t.QueueTaskID != "" {
		if err := o.queue.Revoke(t.QueueTaskID, false); err != nil {
			o.logger.Printf("task %s: revoke job %s: %v", taskID, t.QueueTaskID, err)
		}
	}
	o.logger.Printf("stopped task %s", taskID)
	return nil
}

// Status returns the task row joined with the queue job state.
func (o *Orchestrator) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	t, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	state := StatusUnknown
	if t.QueueTaskID != "" {
		state = o.queue.Status(t.QueueTaskID)
	}
	return &TaskStatus{Task: t, JobState: state}, nil
}

// ListActive returns the user's running tasks.
func (o *Orchestrator) ListActive(ctx context.Context, userID string) ([]*models.TradingTask, error) {
	return o.store.ListActiveTasks(ctx, userID)
}
