package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mfleur/polyleg/internal/models"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite single-writer rule: one connection avoids SQLITE_BUSY storms.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			bot_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			queue_task_id TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT 0,
			total_profit REAL NOT NULL DEFAULT 0,
			win_trades INTEGER NOT NULL DEFAULT 0,
			loss_trades INTEGER NOT NULL DEFAULT 0,
			start_time DATETIME NOT NULL,
			end_time DATETIME
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_one_active
			ON tasks(bot_id) WHERE is_active = 1;`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);`,
		`CREATE TABLE IF NOT EXISTS bots (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			strategy_id TEXT NOT NULL,
			investment_pct REAL NOT NULL DEFAULT 0,
			trade_exit TEXT NOT NULL DEFAULT '{}',
			trade_stop TEXT NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS strategies (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0,
			legs TEXT NOT NULL DEFAULT '[]'
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// CreateTask checks for an active task and inserts inside one transaction.
// The partial unique index backs the same rule up at the engine level.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.TradingTask) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create task: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM tasks WHERE bot_id = ? AND is_active = 1`, task.BotID).Scan(&active)
	if err != nil {
		return fmt.Errorf("check active tasks: %w", err)
	}
	if active > 0 {
		return ErrTaskAlreadyRunning
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, bot_id, user_id, symbol, queue_task_id, is_active,
			total_profit, win_trades, loss_trades, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		task.ID, task.BotID, task.UserID, task.Symbol, task.QueueTaskID, task.IsActive,
		task.TotalProfit, task.WinTrades, task.LossTrades, task.StartTime.UTC())
	if err != nil {
		// Raced past the COUNT into the partial unique index.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrTaskAlreadyRunning
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.TradingTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, bot_id, user_id, symbol, queue_task_id, is_active,
			total_profit, win_trades, loss_trades, start_time, end_time
		 FROM tasks WHERE id = ?`, id)

	var t models.TradingTask
	var end sql.NullTime
	err := row.Scan(&t.ID, &t.BotID, &t.UserID, &t.Symbol, &t.QueueTaskID, &t.IsActive,
		&t.TotalProfit, &t.WinTrades, &t.LossTrades, &t.StartTime, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	if end.Valid {
		t.EndTime = end.Time
	}
	return &t, nil
}

func (s *SQLiteStore) SetTaskActive(ctx context.Context, id string, active bool) error {
	var res sql.Result
	var err error
	if active {
		res, err = s.db.ExecContext(ctx,
			`UPDATE tasks SET is_active = 1, end_time = NULL WHERE id = ?`, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE tasks SET is_active = 0, end_time = ? WHERE id = ?`, time.Now().UTC(), id)
	}
	if err != nil {
		return fmt.Errorf("set task %s active=%t: %w", id, active, err)
	}
	return oneRow(res, id)
}

func (s *SQLiteStore) AttachQueueID(ctx context.Context, id, queueID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET queue_task_id = ? WHERE id = ?`, queueID, id)
	if err != nil {
		return fmt.Errorf("attach queue id to %s: %w", id, err)
	}
	return oneRow(res, id)
}

func (s *SQLiteStore) ListActiveTasks(ctx context.Context, userID string) ([]*models.TradingTask, error) {
	query := `SELECT id, bot_id, user_id, symbol, queue_task_id, is_active,
			total_profit, win_trades, loss_trades, start_time, end_time
		 FROM tasks WHERE is_active = 1`
	args := []any{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY start_time`, args...)
	if err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.TradingTask
	for rows.Next() {
		var t models.TradingTask
		var end sql.NullTime
		if err := rows.Scan(&t.ID, &t.BotID, &t.UserID, &t.Symbol, &t.QueueTaskID, &t.IsActive,
			&t.TotalProfit, &t.WinTrades, &t.LossTrades, &t.StartTime, &end); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if end.Valid {
			t.EndTime = end.Time
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) RecordTradeResult(ctx context.Context, id string, profit float64) error {
	win, loss := 0, 1
	if profit >= 0 {
		win, loss = 1, 0
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET total_profit = total_profit + ?,
			win_trades = win_trades + ?, loss_trades = loss_trades + ?
		 WHERE id = ?`, profit, win, loss, id)
	if err != nil {
		return fmt.Errorf("record trade result on %s: %w", id, err)
	}
	return oneRow(res, id)
}

func (s *SQLiteStore) GetBotConfig(ctx context.Context, id string) (*models.BotConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, strategy_id, investment_pct, trade_exit, trade_stop, version
		 FROM bots WHERE id = ?`, id)

	var bot models.BotConfig
	var exitBlob, stopBlob string
	err := row.Scan(&bot.ID, &bot.UserID, &bot.Name, &bot.StrategyID,
		&bot.InvestmentPct, &exitBlob, &stopBlob, &bot.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bot %s", ErrConfigNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get bot %s: %w", id, err)
	}
	// Blob decode failures intentionally leave the map nil: the translator
	// treats a missing blob as "no exit/stop configured".
	_ = json.Unmarshal([]byte(exitBlob), &bot.TradeExit)
	_ = json.Unmarshal([]byte(stopBlob), &bot.TradeStop)
	return &bot, nil
}

func (s *SQLiteStore) GetStrategyConfig(ctx context.Context, id string) (*models.StrategyConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, symbol, version, legs FROM strategies WHERE id = ?`, id)

	var strat models.StrategyConfig
	var legsBlob string
	err := row.Scan(&strat.ID, &strat.UserID, &strat.Name, &strat.Symbol, &strat.Version, &legsBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: strategy %s", ErrConfigNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(legsBlob), &strat.Legs); err != nil {
		return nil, fmt.Errorf("decode strategy %s legs: %w", id, err)
	}
	return &strat, nil
}

func (s *SQLiteStore) PutBotConfig(ctx context.Context, bot *models.BotConfig) error {
	exitBlob, err := json.Marshal(bot.TradeExit)
	if err != nil {
		return fmt.Errorf("encode trade_exit: %w", err)
	}
	stopBlob, err := json.Marshal(bot.TradeStop)
	if err != nil {
		return fmt.Errorf("encode trade_stop: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bots (id, user_id, name, strategy_id, investment_pct, trade_exit, trade_stop, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id, name=excluded.name,
			strategy_id=excluded.strategy_id, investment_pct=excluded.investment_pct,
			trade_exit=excluded.trade_exit, trade_stop=excluded.trade_stop, version=excluded.version`,
		bot.ID, bot.UserID, bot.Name, bot.StrategyID, bot.InvestmentPct,
		string(exitBlob), string(stopBlob), bot.Version)
	if err != nil {
		return fmt.Errorf("put bot %s: %w", bot.ID, err)
	}
	return nil
}

func (s *SQLiteStore) PutStrategyConfig(ctx context.Context, strategy *models.StrategyConfig) error {
	legsBlob, err := json.Marshal(strategy.Legs)
	if err != nil {
		return fmt.Errorf("encode legs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO strategies (id, user_id, name, symbol, version, legs)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id, name=excluded.name,
			symbol=excluded.symbol, version=excluded.version, legs=excluded.legs`,
		strategy.ID, strategy.UserID, strategy.Name, strategy.Symbol, strategy.Version, string(legsBlob))
	if err != nil {
		return fmt.Errorf("put strategy %s: %w", strategy.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func oneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}
