package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Every runs execute on each tick of the cron expression until ctx is
// cancelled. Runs never overlap; a tick that passes while execute is still
// running is skipped.
func Every(ctx context.Context, cron string, execute func(ctx context.Context)) error {
	expr, err := parse(cron)
	if err != nil {
		return err
	}

	for {
		next := expr.Next(time.Now())
		if next.IsZero() {
			slog.Warn("cron expression has no future run times", "cron", cron)
			return nil
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			execute(ctx)
		}
	}
}
