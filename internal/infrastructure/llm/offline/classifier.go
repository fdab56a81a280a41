// Package offline provides the classifier used when no gateway credentials are
// configured. Every call reports the gateway as unavailable so the batch falls
// back to quarantine placement.
package offline

import (
	"context"

	"github.com/kirillkom/curriculum-organizer/internal/core/domain"
)

const DefaultReason = "API key missing"

type Classifier struct {
	reason string
}

func New(reason string) *Classifier {
	if reason == "" {
		reason = DefaultReason
	}
	return &Classifier{reason: reason}
}

func (c *Classifier) Classify(ctx context.Context, _ domain.ClassificationRequest) (domain.ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ClassificationResult{}, err
	}
	return domain.ClassificationResult{}, domain.NewUnavailableError(c.reason, nil)
}
