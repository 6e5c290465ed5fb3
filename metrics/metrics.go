package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 核心流程的觀測點：排程批次、自動下架、view counter
var (
	EventsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventmap",
		Name:      "events_expired_total",
		Help:      "Events transitioned PUBLISHED→EXPIRED by the expire job",
	})
	RemindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventmap",
		Name:      "reminders_sent_total",
		Help:      "Reminder recipients notified by the remind job",
	})
	AutoDemotions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "eventmap",
		Name:      "event_auto_demotions_total",
		Help:      "Events demoted PUBLISHED→DRAFT after hitting the report threshold",
	})
	ViewIncrements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventmap",
		Name:      "view_increments_total",
		Help:      "Async view-count increments by outcome",
	}, []string{"status"}) // ok / error
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventmap",
		Name:      "scheduler_job_runs_total",
		Help:      "Scheduler job executions by job and outcome",
	}, []string{"job", "status"})
)

func init() {
	prometheus.MustRegister(
		EventsExpired, RemindersSent, AutoDemotions, ViewIncrements, JobRuns,
	)
}

// Handler 掛在 GET /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
