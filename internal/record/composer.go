package record

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tagmill/tagmill/internal/inherit"
	"github.com/tagmill/tagmill/internal/tag"
	"github.com/tagmill/tagmill/internal/tagging"
)

// ComposerConfig configures a Composer.
type ComposerConfig struct {
	Tagger    *tagging.Service
	Extractor Extractor
	Mode      string
	Logger    *zap.Logger
}

// Composer builds meeting and commitment records. Tagging never fails,
// so composition only errors when extraction does.
type Composer struct {
	tagger    *tagging.Service
	extractor Extractor
	mode      string
	logger    *zap.Logger
	now       func() time.Time
}

// NewComposer creates a Composer.
func NewComposer(cfg ComposerConfig) (*Composer, error) {
	if cfg.Tagger == nil {
		return nil, fmt.Errorf("tagging service required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Composer{
		tagger:    cfg.Tagger,
		extractor: cfg.Extractor,
		mode:      cfg.Mode,
		logger:    cfg.Logger,
		now:       time.Now,
	}, nil
}

// ComposeMeeting builds a tagged meeting record from a title and
// summary text.
func (c *Composer) ComposeMeeting(ctx context.Context, title, summary string) *Meeting {
	tags := c.tagger.Tag(ctx, summary, tagging.KindMeeting, c.mode)

	m := &Meeting{
		ID:        newID(),
		Title:     title,
		Summary:   summary,
		Tags:      tag.Strings(tags),
		CreatedAt: c.now(),
	}
	c.logger.Debug("composed meeting",
		zap.String("meeting_id", m.ID),
		zap.Int("tags", len(m.Tags)))
	return m
}

// ComposeCommitments extracts commitments from the meeting summary and
// builds a record per candidate. Each commitment is tagged on its own
// text and then inherits the meeting's tags. Candidates with blank
// text are dropped.
func (c *Composer) ComposeCommitments(ctx context.Context, meeting *Meeting) ([]*Commitment, error) {
	if c.extractor == nil {
		return nil, fmt.Errorf("extractor not configured")
	}

	candidates, err := c.extractor.Extract(ctx, meeting.Summary)
	if err != nil {
		return nil, fmt.Errorf("extracting commitments: %w", err)
	}

	parent := tag.FromStrings(meeting.Tags)
	out := make([]*Commitment, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Text == "" {
			continue
		}

		own := c.tagger.Tag(ctx, cand.Text, tagging.KindCommit, c.mode)
		merged := inherit.Inherit(parent, own)

		out = append(out, &Commitment{
			ID:        newID(),
			MeetingID: meeting.ID,
			Text:      cand.Text,
			Assignee:  cand.Assignee,
			Due:       cand.Due,
			Tags:      tag.Strings(merged),
			CreatedAt: c.now(),
		})
	}

	c.logger.Debug("composed commitments",
		zap.String("meeting_id", meeting.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("commitments", len(out)))
	return out, nil
}
