// scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"time"

	"eventmap/metrics"
)

// Job — (名字, 週期, 進入點) 的宣告；Run 本身是對 store 的純函式，
// 跟排程機制無關，可以直接在測試裡呼叫。回傳這一輪影響的筆數
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) (int, error)
}

type Scheduler struct {
	jobs []Job
}

func New(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start 每個 job 一條 goroutine：先跑一次，之後按週期 tick。
// job 之間彼此獨立，跟請求流量也可以並行；predicate 冪等，所以
// 不支援跑到一半取消 — 重跑就是恢復手段
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		go s.loop(ctx, j)
	}
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	s.runOnce(ctx, j)

	ticker := time.NewTicker(j.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j Job) {
	n, err := j.Run(ctx)
	if err != nil {
		metrics.JobRuns.WithLabelValues(j.Name, "error").Inc()
		log.Printf("[scheduler] %s failed: %v", j.Name, err)
		return
	}
	metrics.JobRuns.WithLabelValues(j.Name, "ok").Inc()
	if n > 0 {
		log.Printf("[scheduler] %s affected %d row(s)", j.Name, n)
	}
}
