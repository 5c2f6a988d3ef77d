package faults

import (
	"context"
	"fmt"
	"time"

	"github.com/emunet/faultbed/pkg/spec"
)

// Injection patterns.
const (
	// PatternPersistent holds the fault for the whole injection phase.
	PatternPersistent = "persistent"
	// PatternIntermittent alternates the fault between burst and gap
	// periods for the duration of the injection phase.
	PatternIntermittent = "intermittent"
)

const (
	defaultBurst = time.Second
	defaultGap   = time.Second
)

// wait sleeps for d, returning early with the context's error if it is
// cancelled. Zero and negative durations return immediately.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runWindow drives the three phases of a fault unit in order: the
// pre-injection wait, the injection phase during which apply/clear are
// invoked following the pattern, and the post-injection wait. A zero
// injection duration skips the injection phase entirely.
func runWindow(
	ctx context.Context,
	w spec.Window,
	pattern string,
	patternArgs []string,
	apply func() error,
	clear func() error,
) error {
	if err := wait(ctx, w.Pre); err != nil {
		return err
	}

	if w.Injection > 0 {
		if err := runPattern(ctx, w.Injection, pattern, patternArgs, apply, clear); err != nil {
			return err
		}
	}

	return wait(ctx, w.Post)
}

func runPattern(
	ctx context.Context,
	d time.Duration,
	pattern string,
	patternArgs []string,
	apply func() error,
	clear func() error,
) error {
	switch pattern {
	case "", PatternPersistent:
		if err := apply(); err != nil {
			return err
		}
		waitErr := wait(ctx, d)
		if err := clear(); err != nil {
			return err
		}
		return waitErr

	case PatternIntermittent:
		burst, gap, err := intermittentPeriods(patternArgs)
		if err != nil {
			return err
		}

		deadline := time.Now().Add(d)
		for time.Now().Before(deadline) {
			if err := apply(); err != nil {
				return err
			}
			waitErr := wait(ctx, remaining(deadline, burst))
			if err := clear(); err != nil {
				return err
			}
			if waitErr != nil {
				return waitErr
			}
			if err := wait(ctx, remaining(deadline, gap)); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}
}

// intermittentPeriods extracts the burst and gap durations from the
// pattern arguments, defaulting each to one second.
func intermittentPeriods(args []string) (burst, gap time.Duration, err error) {
	burst, gap = defaultBurst, defaultGap
	if len(args) > 0 {
		burst, err = time.ParseDuration(args[0])
		if err != nil {
			return 0, 0, fmt.Errorf("parsing burst period %q: %w", args[0], err)
		}
	}
	if len(args) > 1 {
		gap, err = time.ParseDuration(args[1])
		if err != nil {
			return 0, 0, fmt.Errorf("parsing gap period %q: %w", args[1], err)
		}
	}
	return burst, gap, nil
}

// remaining caps d to the time left until the deadline.
func remaining(deadline time.Time, d time.Duration) time.Duration {
	if left := time.Until(deadline); left < d {
		return left
	}
	return d
}
