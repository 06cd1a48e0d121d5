// Package notify delivers recruitment announcements to reviewers.
package notify

import (
	"context"
	"errors"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/pkg/circuitbreaker"
	"github.com/sigmarp/medical-api/pkg/metrics"
)

type Notifier interface {
	NotifyRecruitment(ctx context.Context, rec *model.Recruitment) error
}

// Multi sends through every notifier and joins their failures.
type Multi []Notifier

func (m Multi) NotifyRecruitment(ctx context.Context, rec *model.Recruitment) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyRecruitment(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type guarded struct {
	next    Notifier
	breaker *circuitbreaker.CircuitBreaker
}

// WithBreaker stops calling next while its channel keeps failing. Calls
// rejected by an open breaker are counted under the breaker's name.
func WithBreaker(next Notifier, breaker *circuitbreaker.CircuitBreaker) Notifier {
	return &guarded{next: next, breaker: breaker}
}

func (g *guarded) NotifyRecruitment(ctx context.Context, rec *model.Recruitment) error {
	err := g.breaker.Execute(func() error {
		return g.next.NotifyRecruitment(ctx, rec)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		metrics.RecordNotification(g.breaker.Name(), "rejected")
	}
	return err
}

// truncate cuts s to at most limit characters.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
