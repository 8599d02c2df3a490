package models

import "time"

// TradingTask is one long-running trading loop's lifecycle row. At most one
// task with IsActive=true may exist per bot; the store enforces that at
// creation time inside a transaction, not the loop.
type TradingTask struct {
	ID          string    `json:"id"`
	BotID       string    `json:"bot_id"`
	UserID      string    `json:"user_id"`
	Symbol      string    `json:"symbol"`
	QueueTaskID string    `json:"queue_task_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	TotalProfit float64   `json:"total_profit"`
	WinTrades   int       `json:"win_trades"`
	LossTrades  int       `json:"loss_trades"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time,omitempty"` // zero while running
}

// Ended reports whether the task has been stopped or finished.
func (t *TradingTask) Ended() bool {
	return !t.EndTime.IsZero()
}
