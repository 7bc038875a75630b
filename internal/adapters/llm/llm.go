// Package llm wraps the text-generation backend behind a small interface.
package llm

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	ErrNotConfigured = errors.New("language model not configured")
	ErrEmptyResponse = errors.New("language model returned no text")
)

// Purpose labels a call for metrics and logs.
type Purpose string

const (
	PurposeOpenScore  Purpose = "open_score"
	PurposeTips       Purpose = "tips"
	PurposeMentor     Purpose = "mentor"
	PurposeStrategist Purpose = "strategist"
)

// Speaker is the author of a conversation turn as seen by the model.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

// Turn is one message of the conversation sent to the model.
type Turn struct {
	Speaker Speaker
	Text    string
}

// Request is a single generation call.
type Request struct {
	Purpose Purpose
	// System carries the instructions for the whole conversation.
	System string
	Turns  []Turn
	// JSON asks the backend for an application/json response.
	JSON bool
}

// Generator produces text for a request. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
