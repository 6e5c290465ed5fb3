package scheduler

import (
	"context"
	"log"
	"time"

	"eventmap/metrics"
	"eventmap/models"
)

// ViewCounter 把瀏覽數 +1 移出請求路徑：handler 只丟 id 進 channel，
// worker 再做原子 $inc。語義是 at-least-once — 失敗會重試一次，
// 寧可略多算也不要少算
type ViewCounter struct {
	events models.EventRepository
	ch     chan string
}

func NewViewCounter(events models.EventRepository, buffer int) *ViewCounter {
	if buffer <= 0 {
		buffer = 256
	}
	return &ViewCounter{
		events: events,
		ch:     make(chan string, buffer),
	}
}

func (v *ViewCounter) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-v.ch:
				v.increment(id)
			}
		}
	}()
}

// Enqueue 不會卡住讀取請求：channel 滿了就退化成一條臨時 goroutine
func (v *ViewCounter) Enqueue(id string) {
	select {
	case v.ch <- id:
	default:
		go v.increment(id)
	}
}

func (v *ViewCounter) increment(id string) {
	err := v.events.IncrementViewCount(id)
	if err != nil {
		time.Sleep(100 * time.Millisecond)
		err = v.events.IncrementViewCount(id) // 重試一次就好
	}
	if err != nil {
		metrics.ViewIncrements.WithLabelValues("error").Inc()
		log.Printf("[views] increment %s failed: %v", id, err)
		return
	}
	metrics.ViewIncrements.WithLabelValues("ok").Inc()
}
