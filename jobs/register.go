package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSweepSchedule runs the idle-session sweep once a minute.
const DefaultSweepSchedule = "@every 1m"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewScheduler returns a cron scheduler that logs through logrus and
// recovers from panicking jobs.
func NewScheduler(log logrus.FieldLogger) *cron.Cron {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := cronLogger{log: log}
	return cron.New(
		cron.WithParser(parser),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
}

// AddSweepIdleSessionsJob schedules job on cronSpec ("" means the default).
//
// Example cron: "*/5 * * * *" (every five minutes).
func AddSweepIdleSessionsJob(c *cron.Cron, cronSpec string, job *SweepIdleSessions) (cron.EntryID, error) {
	if cronSpec == "" {
		cronSpec = DefaultSweepSchedule
	}
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return 0, fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	return c.Schedule(schedule, job), nil
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.WithFields(kvFields(kv)).Debug("cron_" + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.WithError(err).WithFields(kvFields(kv)).Error("cron_" + msg)
}

func kvFields(kv []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			f[k] = kv[i+1]
		}
	}
	return f
}
