package storage

import "errors"

var (
	// ErrTaskAlreadyRunning means the bot already has an active trading task.
	ErrTaskAlreadyRunning = errors.New("bot already has an active task")

	// ErrTaskNotFound means no task row exists for the id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrConfigNotFound means no bot or strategy row exists for the id.
	ErrConfigNotFound = errors.New("config not found")
)
