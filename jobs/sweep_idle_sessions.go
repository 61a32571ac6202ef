package jobs

import (
	"github.com/open-rails/profilekit/core"
	"github.com/sirupsen/logrus"
)

// SweepIdleSessions closes edit sessions nobody touched within the
// service's idle TTL. Closing stops their cooldown timers.
type SweepIdleSessions struct {
	svc *core.Service
	log logrus.FieldLogger
}

func NewSweepIdleSessions(svc *core.Service, log logrus.FieldLogger) *SweepIdleSessions {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SweepIdleSessions{svc: svc, log: log}
}

// Run implements cron.Job.
func (j *SweepIdleSessions) Run() {
	if j == nil || j.svc == nil {
		return
	}
	n := j.svc.SweepIdle()
	j.log.WithFields(logrus.Fields{
		"closed":    n,
		"remaining": j.svc.Registry().Len(),
	}).Debug("sweep_idle_sessions")
}
