package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/yeelightd/internal/utils"
)

// GetLevelInput is the input for reading the log level.
type GetLevelInput struct{}

// SetLevelInput is the input for changing the global log level.
type SetLevelInput struct {
	Body struct {
		Level string `json:"level" doc:"New log level (debug, info, warn, error)" minLength:"1"`
	}
}

// LevelOutput reports the global log level.
type LevelOutput struct {
	Body struct {
		Level string `json:"level" doc:"Current global log level"`
	}
}

// LoggingHandler implements runtime logging handlers.
type LoggingHandler struct {
	Logger *slog.Logger
}

// GetLevel returns the current log level.
func (h *LoggingHandler) GetLevel(_ context.Context, _ *GetLevelInput) (*LevelOutput, error) {
	out := &LevelOutput{}
	out.Body.Level = utils.CurrentLevel()
	return out, nil
}

// SetLevel validates and changes the global log level at runtime.
func (h *LoggingHandler) SetLevel(_ context.Context, input *SetLevelInput) (*LevelOutput, error) {
	requested := strings.ToLower(input.Body.Level)
	if utils.ValidateLogLevel(requested) != requested {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("Invalid log level %q; must be debug, info, warn, or error", input.Body.Level))
	}
	level := utils.SetLevel(requested)
	h.Logger.Info("Log level changed via API", "level", level)

	out := &LevelOutput{}
	out.Body.Level = level
	return out, nil
}

var _ LoggingHandlers = (*LoggingHandler)(nil)

// LoggingHandlers defines the logging management operations.
type LoggingHandlers interface {
	GetLevel(ctx context.Context, input *GetLevelInput) (*LevelOutput, error)
	SetLevel(ctx context.Context, input *SetLevelInput) (*LevelOutput, error)
}
