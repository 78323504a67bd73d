package notify

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// parseSchedule parses a 5-field cron expression, wrapping parse failures so
// the caller can report which configured schedule was rejected.
func parseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("notify: parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

// untilNext returns the duration until the schedule's next fire time,
// clamped to zero so a timer armed with it fires immediately rather than
// never.
func untilNext(sched cron.Schedule) time.Duration {
	d := time.Until(sched.Next(time.Now()))
	if d < 0 {
		return 0
	}
	return d
}
