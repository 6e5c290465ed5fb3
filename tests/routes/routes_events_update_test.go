// 測試目的：更新/刪除 — 擁有者檢查、部分更新、先快照再落地、軟刪除
package tests

import (
	"net/http"
	"strings"
	"testing"

	"eventmap/models"
)

func TestUpdate_OwnerOnly(t *testing.T) {
	d := setupServerWithDeps(t, true)
	d.users.Create(&models.User{Email: "owner@example.com", Password: "pw"})   // uid 1
	d.users.Create(&models.User{Email: "someone@example.com", Password: "pw"}) // uid 2
	seedEvent(d, "ev1", nil)

	w := doReq(d.s, http.MethodPatch, "/events/ev1", `{"title": "Novo Título"}`, authToken(t, 2))
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-owner patch: want 403, got %d", w.Code)
	}

	w = doReq(d.s, http.MethodPatch, "/events/nope", `{"title": "x"}`, authToken(t, 1))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing event: want 404, got %d", w.Code)
	}
}

// 部分更新：只動帶了的欄位，其他原封不動
func TestUpdate_PartialFields(t *testing.T) {
	d := setupServerWithDeps(t, true)
	d.users.Create(&models.User{Email: "owner@example.com", Password: "pw"})
	seedEvent(d, "ev1", func(e *models.Event) {
		e.Description = "Discos e som na praça"
		e.IsFree = true
	})

	w := doReq(d.s, http.MethodPatch, "/events/ev1",
		`{"title": "Feira de Vinil — Edição 2"}`, authToken(t, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (%s)", w.Code, w.Body.String())
	}

	got, err := d.ev.GetByID("ev1")
	if err != nil {
		t.Fatalf("fetch after patch: %v", err)
	}
	if got.Title != "Feira de Vinil — Edição 2" {
		t.Fatalf("title not updated: %q", got.Title)
	}
	if got.Description != "Discos e som na praça" || !got.IsFree {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

// 快照存的是「改動前」的值，而且每次 update 恰好一筆
func TestUpdate_SnapshotsPreviousState(t *testing.T) {
	d := setupServerWithDeps(t, true)
	d.users.Create(&models.User{Email: "owner@example.com", Password: "pw"})
	seedEvent(d, "ev1", nil)

	w := doReq(d.s, http.MethodPatch, "/events/ev1", `{"title": "Mudou"}`, authToken(t, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d (%s)", w.Code, w.Body.String())
	}

	entries, _ := d.hist.ListByEvent("ev1")
	if len(entries) != 1 {
		t.Fatalf("want exactly 1 history entry, got %d", len(entries))
	}
	if entries[0].Snapshot.Title != "Feira de Vinil" {
		t.Fatalf("snapshot should hold pre-update title, got %q", entries[0].Snapshot.Title)
	}
	if entries[0].ChangedBy == nil || *entries[0].ChangedBy != 1 {
		t.Fatalf("snapshot should record who changed it: %+v", entries[0].ChangedBy)
	}
}

// 快照寫不進去 → 500，事件完全不動
func TestUpdate_SnapshotFailureAbortsUpdate(t *testing.T) {
	d := setupServerWithDeps(t, true)
	d.users.Create(&models.User{Email: "owner@example.com", Password: "pw"})
	seedEvent(d, "ev1", nil)
	d.hist.Fail = true

	w := doReq(d.s, http.MethodPatch, "/events/ev1", `{"title": "Mudou"}`, authToken(t, 1))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", w.Code)
	}

	got, _ := d.ev.GetByID("ev1")
	if got.Title != "Feira de Vinil" {
		t.Fatalf("event must not change when snapshot fails, got title %q", got.Title)
	}
}

// 座標 patch 到界外 → 400，規則跟建立時一致
func TestUpdate_LocationRecheckedAgainstBoundary(t *testing.T) {
	d := setupServerWithDeps(t, true)
	d.users.Create(&models.User{Email: "owner@example.com", Password: "pw"})
	seedEvent(d, "ev1", nil)

	w := doReq(d.s, http.MethodPatch, "/events/ev1",
		`{"lng": -46.6333, "lat": -23.5505}`, authToken(t, 1))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-bounds patch: want 400, got %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "location") {
		t.Fatalf("error should name location: %s", w.Body.String())
	}
}

func TestDelete_SoftDeleteHidesEvent(t *testing.T) {
	d := setupServerWithDeps(t, true)
	d.users.Create(&models.User{Email: "owner@example.com", Password: "pw"})
	d.users.Create(&models.User{Email: "someone@example.com", Password: "pw"})
	seedEvent(d, "ev1", nil)

	w := doReq(d.s, http.MethodDelete, "/events/ev1", "", authToken(t, 2))
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete: want 403, got %d", w.Code)
	}

	w = doReq(d.s, http.MethodDelete, "/events/ev1", "", authToken(t, 1))
	if w.Code != http.StatusNoContent {
		t.Fatalf("owner delete: want 204, got %d", w.Code)
	}

	// 刪除後讀取面看不到
	w = doReq(d.s, http.MethodGet, "/events/ev1", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted event should 404, got %d", w.Code)
	}

	// 重複刪除不該 panic，也拿不到已刪的事件
	w = doReq(d.s, http.MethodDelete, "/events/ev1", "", authToken(t, 1))
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete twice: want 404, got %d", w.Code)
	}
}

// 更新用的是「讀到的那份」事件，但 view_count 跟 status 不歸它管：
// 讀寫之間插進來的原子遞增／狀態轉移不能被覆寫回去
func TestUpdate_KeepsConcurrentCounterAndStatus(t *testing.T) {
	d := setupServerWithDeps(t, true)
	d.users.Create(&models.User{Email: "owner@example.com", Password: "pw"})
	seedEvent(d, "ev1", nil)

	stale, err := d.ev.GetByID("ev1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// handler 的 read 跟 write 之間發生的事
	if err := d.ev.IncrementViewCount("ev1"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := d.ev.SetStatus("ev1", []string{models.StatusPublished}, models.StatusCancelled); err != nil {
		t.Fatalf("set status: %v", err)
	}

	stale.Title = "Feira de Vinil — Edição 2"
	if err := d.ev.Update(&stale); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := d.ev.Items["ev1"]
	if got.Title != "Feira de Vinil — Edição 2" {
		t.Fatalf("title not updated, got %q", got.Title)
	}
	if got.ViewCount != 1 {
		t.Fatalf("view increment lost: want 1 after update, got %d", got.ViewCount)
	}
	if got.Status != models.StatusCancelled {
		t.Fatalf("status transition lost: want CANCELLED, got %q", got.Status)
	}
}
