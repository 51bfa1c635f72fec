// Package record composes meeting and commitment records out of raw
// text. Commitments are extracted from the meeting transcript by an
// external collaborator behind the Extractor interface; the composer
// only owns tagging and inheritance.
package record

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Meeting is a tagged meeting record.
type Meeting struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Commitment is one extracted commitment, tagged on its own text and
// inheriting the parent meeting's tags.
type Commitment struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Text      string    `json:"text"`
	Assignee  string    `json:"assignee,omitempty"`
	Due       string    `json:"due,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate is a raw extracted commitment before composition.
type Candidate struct {
	Text     string
	Assignee string
	Due      string
}

// Extractor pulls commitment candidates out of a meeting summary. The
// production implementation is an LLM call owned elsewhere; the
// composer treats it as a function that may fail.
type Extractor interface {
	Extract(ctx context.Context, summary string) ([]Candidate, error)
}

func newID() string { return uuid.NewString() }
