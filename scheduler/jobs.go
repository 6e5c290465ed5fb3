package scheduler

import (
	"context"
	"log"
	"time"

	"eventmap/metrics"
	"eventmap/models"
	"eventmap/notify"
)

// ExpireJob — PUBLISHED 且 end_datetime 已過的事件批次轉 EXPIRED。
// 冪等：連跑兩次，第二次影響 0 筆
func ExpireJob(events models.EventRepository, every time.Duration) Job {
	return Job{
		Name:  "expire_overdue_events",
		Every: every,
		Run: func(ctx context.Context) (int, error) {
			n, err := events.ExpireOverdue(time.Now().UTC())
			if err != nil {
				return 0, err
			}
			metrics.EventsExpired.Add(float64(n))
			return int(n), nil
		},
	}
}

// RemindJob — 每天掃一次 now+23h..now+25h 視窗內開始的事件，
// 通知 GOING / INTERESTED 的使用者（email 已在 ledger 端去重）。
// 單場通知失敗只記 log，不中斷剩下的批次
func RemindJob(
	events models.EventRepository,
	interactions models.InteractionRepository,
	notifier notify.Notifier,
	every time.Duration,
) Job {
	return Job{
		Name:  "send_event_reminders",
		Every: every,
		Run: func(ctx context.Context) (int, error) {
			now := time.Now().UTC()
			upcoming, err := events.StartingBetween(now.Add(23*time.Hour), now.Add(25*time.Hour))
			if err != nil {
				return 0, err
			}

			sent := 0
			for _, e := range upcoming {
				recipients, err := interactions.RecipientsForEvent(e.ID,
					[]string{models.InteractionGoing, models.InteractionInterested})
				if err != nil {
					log.Printf("[scheduler] reminder recipients for %s failed: %v", e.ID, err)
					continue
				}
				if len(recipients) == 0 {
					continue // 沒人關注就跳過
				}
				if err := notifier.EventReminder(e, recipients); err != nil {
					log.Printf("[scheduler] reminder for %s failed: %v", e.ID, err)
					continue
				}
				sent += len(recipients)
				metrics.RemindersSent.Add(float64(len(recipients)))
			}
			return sent, nil
		},
	}
}
