// 測試目的：背景工作 — 過期批次冪等、提醒去重與失敗隔離、view counter 非同步遞增
package tests

import (
	"context"
	"testing"
	"time"

	"eventmap/models"
	"eventmap/scheduler"
	"eventmap/tests/mocks"
)

func pastEvent(id string, status string) models.Event {
	end := time.Now().UTC().Add(-2 * time.Hour)
	return models.Event{
		ID:            id,
		Title:         "Show encerrado",
		Status:        status,
		StartDateTime: end.Add(-3 * time.Hour),
		EndDateTime:   &end,
	}
}

// 連跑兩次：第一次轉了 n 筆，第二次一定是 0（冪等）
func TestExpireJob_Idempotent(t *testing.T) {
	ev := mocks.NewMockEventRepo()
	ev.Items["done1"] = pastEvent("done1", models.StatusPublished)
	ev.Items["done2"] = pastEvent("done2", models.StatusPublished)
	ev.Items["draft"] = pastEvent("draft", models.StatusDraft) // 只動 PUBLISHED
	future := pastEvent("future", models.StatusPublished)
	end := time.Now().UTC().Add(5 * time.Hour)
	future.EndDateTime = &end
	ev.Items["future"] = future

	job := scheduler.ExpireJob(ev, time.Hour)

	n, err := job.Run(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("first run: want 2 expired, got %d err=%v", n, err)
	}
	for _, id := range []string{"done1", "done2"} {
		if got, _ := ev.GetByID(id); got.Status != models.StatusExpired {
			t.Fatalf("%s: want EXPIRED, got %s", id, got.Status)
		}
	}
	if got, _ := ev.GetByID("draft"); got.Status != models.StatusDraft {
		t.Fatalf("draft must stay DRAFT, got %s", got.Status)
	}
	if got, _ := ev.GetByID("future"); got.Status != models.StatusPublished {
		t.Fatalf("future event must stay PUBLISHED, got %s", got.Status)
	}

	n, err = job.Run(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second run must be a no-op, got %d err=%v", n, err)
	}
}

func reminderFixture() (*mocks.MockEventRepo, *mocks.MockInteractionRepo) {
	ev := mocks.NewMockEventRepo()
	soon := models.Event{
		ID:            "soon",
		Title:         "Feira de Vinil",
		Status:        models.StatusPublished,
		StartDateTime: time.Now().UTC().Add(24 * time.Hour),
	}
	ev.Items["soon"] = soon
	farAway := soon
	farAway.ID = "far"
	farAway.StartDateTime = time.Now().UTC().Add(72 * time.Hour)
	ev.Items["far"] = farAway

	inter := mocks.NewMockInteractionRepo()
	inter.Emails = map[int64]string{1: "a@example.com", 2: "b@example.com", 3: "a@example.com"}
	inter.Toggle(1, "soon", models.InteractionGoing)
	inter.Toggle(2, "soon", models.InteractionInterested)
	inter.Toggle(3, "soon", models.InteractionGoing) // 跟 uid 1 同 email → 去重
	inter.Toggle(1, "far", models.InteractionGoing)  // 視窗外，不提醒
	return ev, inter
}

func TestRemindJob_WindowAndDedup(t *testing.T) {
	ev, inter := reminderFixture()
	notif := &mocks.MockNotifier{}

	job := scheduler.RemindJob(ev, inter, notif, time.Hour)
	n, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 recipients after dedup, got %d", n)
	}
	if len(notif.Reminders) != 1 || notif.Reminders[0].EventID != "soon" {
		t.Fatalf("only the 24h-window event should remind: %+v", notif.Reminders)
	}
	got := map[string]bool{}
	for _, r := range notif.Reminders[0].Recipients {
		got[r] = true
	}
	if !got["a@example.com"] || !got["b@example.com"] || len(got) != 2 {
		t.Fatalf("recipients wrong: %v", notif.Reminders[0].Recipients)
	}
}

// 一場寄失敗不該吃掉整批
func TestRemindJob_FailureIsolated(t *testing.T) {
	ev, inter := reminderFixture()
	soon2 := ev.Items["soon"]
	soon2.ID = "soon2"
	ev.Items["soon2"] = soon2
	inter.Toggle(2, "soon2", models.InteractionGoing)

	notif := &mocks.MockNotifier{FailFor: map[string]bool{"soon": true}}
	job := scheduler.RemindJob(ev, inter, notif, time.Hour)

	n, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("a single failure must not fail the job: %v", err)
	}
	if n != 1 || len(notif.Reminders) != 1 || notif.Reminders[0].EventID != "soon2" {
		t.Fatalf("soon2 should still be reminded: n=%d %+v", n, notif.Reminders)
	}
}

// 沒人關注 → 連 notifier 都不叫
func TestRemindJob_SkipsEventsWithoutAudience(t *testing.T) {
	ev := mocks.NewMockEventRepo()
	ev.Items["quiet"] = models.Event{
		ID:            "quiet",
		Status:        models.StatusPublished,
		StartDateTime: time.Now().UTC().Add(24 * time.Hour),
	}
	notif := &mocks.MockNotifier{}

	job := scheduler.RemindJob(ev, mocks.NewMockInteractionRepo(), notif, time.Hour)
	if n, err := job.Run(context.Background()); err != nil || n != 0 {
		t.Fatalf("want 0 sent, got %d err=%v", n, err)
	}
	if len(notif.Reminders) != 0 {
		t.Fatalf("notifier should not be called: %+v", notif.Reminders)
	}
}

func TestViewCounter_IncrementsAsync(t *testing.T) {
	ev := mocks.NewMockEventRepo()
	ev.Items["ev1"] = models.Event{ID: "ev1", Status: models.StatusPublished}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vc := scheduler.NewViewCounter(ev, 8)
	vc.Start(ctx)

	for i := 0; i < 3; i++ {
		vc.Enqueue("ev1")
	}

	// 非同步 → poll 到數字到位或逾時
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := ev.GetByID("ev1"); got.ViewCount == 3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	got, _ := ev.GetByID("ev1")
	t.Fatalf("want view_count 3, got %d", got.ViewCount)
}
