package workflow

import (
	"time"
)

// Sleep pauses the workflow for the given duration. Returns Canceled if the
// context is canceled while sleeping.
func Sleep(ctx Context, d time.Duration) error {
	_, err := ScheduleTimer(ctx, d).Get(ctx)

	return err
}
