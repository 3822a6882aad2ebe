package audit

import (
	"context"

	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// Publisher receives a copy of every stored entry.
type Publisher interface {
	Publish(ctx context.Context, e *Entry) error
}

// Mirror stores entries through a Repository and then hands them to a
// Publisher. Publish failures are logged and never fail Create.
type Mirror struct {
	*Repository
	publisher Publisher
	logger    *logging.Logger
}

// MirrorTo returns a Mirror over r.
func (r *Repository) MirrorTo(p Publisher, logger *logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.Default()
	}
	return &Mirror{Repository: r, publisher: p, logger: logger.With("component", "audit")}
}

// Create stores e, then publishes it. An entry that could not be stored is
// not published.
func (m *Mirror) Create(ctx context.Context, e *Entry) error {
	if err := m.Repository.Create(ctx, e); err != nil {
		return err
	}
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.logger.Warn("publishing audit entry failed",
			"id", e.ID,
			"action", e.Action,
			"error", err,
		)
	}
	return nil
}
