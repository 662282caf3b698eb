package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field length limits for user-supplied chat text. Input flows into regex
// extraction and, for the manager persona, into a paid completion call.
const (
	MaxMessageLen      = 4 * 1024 // runes
	MaxManagerTurns    = 100
	MaxManagerTurnLen  = 8 * 1024 // runes
	MaxScheduleBlockID = 64
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeBusy          = "BUSY"
	ErrCodeNoProjectName = "NO_PROJECT_NAME"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// SimulateRequest is the request body for POST /v1/simulate and POST /v1/extract.
type SimulateRequest struct {
	Text string `json:"text"`
}

// CreateSessionRequest is the request body for POST /v1/sessions.
type CreateSessionRequest struct {
	Persona Persona `json:"persona"`
}

// SendMessageRequest is the request body for POST /v1/sessions/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ConfirmScheduleRequest is the request body for
// POST /v1/sessions/{id}/messages/{message_id}/schedule/confirm.
// An empty BlockID confirms every block ("confirm all").
type ConfirmScheduleRequest struct {
	BlockID         string `json:"block_id,omitempty"`
	ExpectedVersion int    `json:"expected_version"`
}

// ManagerChatRequest is the request body for POST /api/chat.
type ManagerChatRequest struct {
	Messages []ChatTurn `json:"messages"`
}

// ManagerChatResponse is the success body for POST /api/chat.
type ManagerChatResponse struct {
	Content string `json:"content"`
}

// ManagerChatError is the failure body for POST /api/chat.
type ManagerChatError struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Profiles        int    `json:"profiles"`
	Sessions        int    `json:"sessions"`
	ManagerProvider string `json:"manager_provider"`
	Uptime          int64  `json:"uptime_seconds"`
}

// SessionCreated is the response for POST /v1/sessions.
type SessionCreated struct {
	ID      uuid.UUID `json:"id"`
	Persona Persona   `json:"persona"`
	State   ChatState `json:"state"`
}

// ValidateMessage checks a chat message before it enters the pipeline.
func ValidateMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content must not be empty")
	}
	if n := utf8.RuneCountInString(content); n > MaxMessageLen {
		return fmt.Errorf("content exceeds maximum length of %d characters", MaxMessageLen)
	}
	return nil
}

// ValidateManagerChat checks a proxy request body.
func ValidateManagerChat(req ManagerChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	if len(req.Messages) > MaxManagerTurns {
		return fmt.Errorf("messages exceeds maximum of %d turns", MaxManagerTurns)
	}
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("messages[%d].role: invalid role %q", i, m.Role)
		}
		if utf8.RuneCountInString(m.Content) > MaxManagerTurnLen {
			return fmt.Errorf("messages[%d].content exceeds maximum length of %d characters", i, MaxManagerTurnLen)
		}
	}
	return nil
}

// ProfileSummary is one row of GET /v1/profiles.
type ProfileSummary struct {
	Key             string   `json:"key"`
	Priority        Priority `json:"priority"`
	DefaultQuantity int      `json:"default_quantity"`
	ShipDate        string   `json:"ship_date"`
	Plans           int      `json:"plans"`
}
