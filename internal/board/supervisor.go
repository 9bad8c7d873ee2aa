package board

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fsrtos/internal/kernel"
)

// Boot identifies one run of the system between resets.
type Boot struct {
	Seq int       // 0 for the first boot
	ID  uuid.UUID // unique per boot
}

// BootFunc builds a fresh kernel, creates the application tasks and runs it.
type BootFunc func(ctx context.Context, boot Boot) error

// Supervisor restarts the system from its boot function after every abort,
// discarding all task state, the way a hardware reset would.
type Supervisor struct {
	MaxRestarts int // 0 = unlimited
	Log         *zap.Logger
}

// Run boots until the boot function returns something other than an abort,
// the context ends, or the restart budget is spent. In the last case the
// final abort is returned.
func (s *Supervisor) Run(ctx context.Context, boot BootFunc) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	for seq := 0; ; seq++ {
		b := Boot{Seq: seq, ID: uuid.New()}
		log.Info("boot", zap.Int("seq", seq), zap.String("id", b.ID.String()))

		err := boot(ctx, b)
		ae, aborted := kernel.IsAbort(err)
		if !aborted {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.MaxRestarts > 0 && seq >= s.MaxRestarts {
			return fmt.Errorf("giving up after %d restarts: %w", seq, ae)
		}
		log.Warn("reset after abort", zap.Int("seq", seq), zap.Stringer("fault", ae.Fault))
	}
}
