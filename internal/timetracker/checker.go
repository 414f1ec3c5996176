package timetracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const minutesPerDay = 24 * 60

// ScannerFactory builds a gap scanner from the settings current at fire
// time, so calendar and pattern changes are picked up without a restart.
type ScannerFactory func(ctx context.Context) (*GapScanner, error)

// EstimatedTimeChecker is the daily background job that scans every
// subscribed user for missing recent worklogs and hands the finding to
// the notifier. One user failing never aborts the rest of the batch.
type EstimatedTimeChecker struct {
	newScanner  ScannerFactory
	notifier    Notifier
	users       []string
	checkMinute int
	logger      *zap.Logger
	now         func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEstimatedTimeChecker configures the job to fire daily at the given
// minute of day (0..1439) for the listed user keys.
func NewEstimatedTimeChecker(newScanner ScannerFactory, notifier Notifier, users []string, checkMinuteOfDay int, logger *zap.Logger) *EstimatedTimeChecker {
	return &EstimatedTimeChecker{
		newScanner:  newScanner,
		notifier:    notifier,
		users:       users,
		checkMinute: checkMinuteOfDay,
		logger:      logger,
		now:         time.Now,
	}
}

// Start launches the daily loop. The first run fires when the wall clock
// next reaches the configured minute of day; if that minute already
// passed today the run waits for tomorrow.
func (c *EstimatedTimeChecker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
	c.logger.Info("estimated time checker started",
		zap.Int("minute_of_day", c.checkMinute),
		zap.Int("users", len(c.users)),
	)
}

// Stop cancels the scheduled task, including an in-flight run, and
// waits for the loop to exit.
func (c *EstimatedTimeChecker) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *EstimatedTimeChecker) run(ctx context.Context) {
	defer close(c.done)
	timer := time.NewTimer(c.initialDelay(c.now()))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			c.checkAll(ctx)
			timer.Reset(minutesPerDay * time.Minute)
		}
	}
}

// initialDelay is the distance from the current minute of day to the
// target minute, wrapped forward by one full day when the target already
// passed.
func (c *EstimatedTimeChecker) initialDelay(now time.Time) time.Duration {
	delay := c.checkMinute - (now.Hour()*60 + now.Minute())
	if delay < 0 {
		delay += minutesPerDay
	}
	return time.Duration(delay) * time.Minute
}

func (c *EstimatedTimeChecker) checkAll(ctx context.Context) {
	scanner, err := c.newScanner(ctx)
	if err != nil {
		c.logger.Error("estimated time check: build scanner", zap.Error(err))
		return
	}
	today := startOfDay(c.now())
	for _, user := range c.users {
		if ctx.Err() != nil {
			return
		}
		missing, err := scanner.FirstMissingWorklogDate(ctx, user)
		if err != nil {
			c.logger.Error("estimated time check failed",
				zap.String("user", user), zap.Error(err))
			continue
		}
		if !missing.Before(today) {
			continue
		}
		subject := fmt.Sprintf("Missing worklogs for %s", user)
		body := fmt.Sprintf(
			"User %s has no worklog on %s. Please log the missing time.",
			user, missing.Format(DateLayout),
		)
		if err := c.notifier.Send(ctx, subject, body); err != nil {
			c.logger.Error("estimated time notification failed",
				zap.String("user", user), zap.Error(err))
		}
	}
}
