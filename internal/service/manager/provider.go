// Package manager proxies the manager persona to a hosted completion model.
//
// A Provider performs one request/response completion. The Proxy prepends
// the fixed persona prompt and knowledge documents as the system message and
// never retries or streams.
package manager

import (
	"context"
	"errors"
	"time"

	"github.com/ashita-ai/nouki/internal/model"
)

// ErrNotConfigured is returned when no provider or credential is available.
var ErrNotConfigured = errors.New("manager: completion provider not configured")

// Provider completes a conversation given a system prompt and the turns so far.
type Provider interface {
	Complete(ctx context.Context, system string, turns []model.ChatTurn) (string, error)
	Name() string
}

// perCallTimeout bounds a single completion call.
const perCallTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response body ends up in the error.
const maxErrorBody = 1024

// DefaultOpenAIModel is the fixed model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"
