package mocks

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"eventmap/geo"
	"eventmap/models"
	"eventmap/utils"
)

/* ---------- users ---------- */

type MockUserRepo struct {
	Users    map[string]models.User // key 是 email  //假db 實現介面方法
	Profiles map[int64]models.Profile
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{
		Users:    map[string]models.User{},
		Profiles: map[int64]models.Profile{},
	}
}

// Create 跟真 repo 一樣的不變量：user 建了 profile 一定跟著建
func (m *MockUserRepo) Create(u *models.User) error {
	if _, ok := m.Users[u.Email]; ok {
		return errors.New("dup")
	}
	u.ID = int64(len(m.Users) + 1)
	m.Users[u.Email] = *u
	m.Profiles[u.ID] = models.Profile{ID: u.ID, UserID: u.ID}
	return nil
}

func (m *MockUserRepo) ValidateCredentials(email, plain string) (models.User, error) {
	u, ok := m.Users[email]
	if !ok {
		return models.User{}, errors.New("not found")
	}
	// 測試先簡化：直接用明碼比對
	if u.Password != plain {
		return models.User{}, errors.New("bad")
	}
	return u, nil
}

func (m *MockUserRepo) GetByID(id int64) (models.User, error) {
	for _, u := range m.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (m *MockUserRepo) GetProfile(userID int64) (models.Profile, error) {
	p, ok := m.Profiles[userID]
	if !ok {
		return models.Profile{}, models.ErrNotFound
	}
	return p, nil
}

func (m *MockUserRepo) SetVerifiedOrganizer(userID int64, verified bool) error {
	p, ok := m.Profiles[userID]
	if !ok {
		return models.ErrNotFound
	}
	p.IsVerified = verified
	m.Profiles[userID] = p
	return nil
}

/* ---------- events ---------- */

type MockEventRepo struct {
	mu    sync.Mutex
	Items map[string]models.Event
}

func NewMockEventRepo() *MockEventRepo {
	return &MockEventRepo{Items: map[string]models.Event{}}
}

func (m *MockEventRepo) Create(e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	m.Items[e.ID] = *e
	return nil
}

// Update 跟真 repo 一樣只動可編輯欄位，view_count/status 不跟著覆寫
func (m *MockEventRepo) Update(e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.Items[e.ID]
	if !ok || old.DeletedAt != nil {
		return models.ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()

	cur := old
	cur.Title = e.Title
	cur.Description = e.Description
	cur.OrganizerName = e.OrganizerName
	cur.Category = e.Category
	cur.Tags = e.Tags
	cur.Location = e.Location
	cur.Address = e.Address
	cur.Neighborhood = e.Neighborhood
	cur.City = e.City
	cur.StartDateTime = e.StartDateTime
	cur.EndDateTime = e.EndDateTime
	cur.IsFree = e.IsFree
	cur.PriceInfo = e.PriceInfo
	cur.InstagramURL = e.InstagramURL
	cur.TicketURL = e.TicketURL
	cur.CoverImageURL = e.CoverImageURL
	cur.MaxCapacity = e.MaxCapacity
	cur.IsRecurring = e.IsRecurring
	cur.RecurrenceRule = e.RecurrenceRule
	cur.UpdatedAt = e.UpdatedAt
	m.Items[e.ID] = cur
	return nil
}

func (m *MockEventRepo) GetByID(id string) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok || e.DeletedAt != nil { // 軟刪除視同不存在
		return models.Event{}, models.ErrNotFound
	}
	return e, nil
}

func (m *MockEventRepo) SoftDelete(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok || e.DeletedAt != nil {
		return models.ErrNotFound
	}
	e.DeletedAt = &at
	m.Items[id] = e
	return nil
}

// Query 照真 repo 的語義過濾（AND 組合；q 是 title/description 的 OR）
func (m *MockEventRepo) Query(f models.EventFilter) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Event
	for _, e := range m.Items {
		if e.DeletedAt != nil {
			continue
		}
		if f.OrganizerID != nil {
			if e.OrganizerUserID == nil || *e.OrganizerUserID != *f.OrganizerID {
				continue
			}
		} else if e.Status != models.StatusPublished {
			continue
		}
		if f.CitySlug != "" && e.City.Slug != f.CitySlug {
			continue
		}
		if f.CategorySlug != "" && e.Category.Slug != f.CategorySlug {
			continue
		}
		if f.IsFree != nil && e.IsFree != *f.IsFree {
			continue
		}
		if f.StartDate != nil && e.StartDateTime.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && !e.StartDateTime.Before(f.EndDate.Add(24*time.Hour)) {
			continue
		}
		if f.BBox != nil && !f.BBox.Contains(e.Location) {
			continue
		}
		if f.Query != "" {
			q := strings.ToLower(f.Query)
			title := strings.ToLower(e.Title)
			desc := strings.ToLower(e.Description)
			if !strings.Contains(title, q) && !strings.Contains(desc, q) {
				continue
			}
		}
		if f.Center != nil && f.RadiusKm > 0 {
			if geo.HaversineKm(*f.Center, e.Location) > f.RadiusKm {
				continue
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MockEventRepo) IncrementViewCount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok || e.DeletedAt != nil {
		return nil
	}
	e.ViewCount++
	m.Items[id] = e
	return nil
}

func (m *MockEventRepo) ExpireOverdue(now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.Items {
		if e.DeletedAt != nil || e.Status != models.StatusPublished {
			continue
		}
		if e.EndDateTime == nil || !e.EndDateTime.Before(now) {
			continue // 沒有 end_datetime 的永遠不自動過期
		}
		e.Status = models.StatusExpired
		m.Items[id] = e
		n++
	}
	return n, nil
}

func (m *MockEventRepo) SetStatus(id string, from []string, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok || e.DeletedAt != nil {
		return false, nil
	}
	if len(from) > 0 {
		match := false
		for _, s := range from {
			if e.Status == s {
				match = true
				break
			}
		}
		if !match {
			return false, nil
		}
	}
	e.Status = to
	m.Items[id] = e
	return true, nil
}

func (m *MockEventRepo) PublishBatch(ids []string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var published []models.Event
	for _, id := range ids {
		e, ok := m.Items[id]
		if !ok || e.DeletedAt != nil {
			continue
		}
		if e.Status != models.StatusDraft && e.Status != models.StatusCancelled {
			continue
		}
		e.Status = models.StatusPublished
		m.Items[id] = e
		published = append(published, e)
	}
	return published, nil
}

func (m *MockEventRepo) CancelBatch(ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		e, ok := m.Items[id]
		if !ok || e.DeletedAt != nil || e.Status == models.StatusCancelled {
			continue // 已取消的不算 modified
		}
		e.Status = models.StatusCancelled
		m.Items[id] = e
		n++
	}
	return n, nil
}

func (m *MockEventRepo) StartingBetween(from, to time.Time) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, e := range m.Items {
		if e.DeletedAt != nil || e.Status != models.StatusPublished {
			continue
		}
		if e.StartDateTime.Before(from) || e.StartDateTime.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MockEventRepo) CountByCategory(slug string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.Items {
		if e.DeletedAt == nil && e.Category.Slug == slug {
			n++
		}
	}
	return n, nil
}

/* ---------- interactions ---------- */

type MockInteractionRepo struct {
	mu         sync.Mutex
	Items      map[string]models.Interaction // key "uid|eid|kind" — 模擬複合唯一鍵
	Emails     map[int64]string              // reminder 收件人查詢用
	FailCounts bool                          // CountsForEvents 故障注入
	nextID     int64
}

func NewMockInteractionRepo() *MockInteractionRepo {
	return &MockInteractionRepo{
		Items:  map[string]models.Interaction{},
		Emails: map[int64]string{},
	}
}

func ikey(uid int64, eid, kind string) string {
	return fmt.Sprintf("%d|%s|%s", uid, eid, kind)
}

func (m *MockInteractionRepo) Toggle(userID int64, eventID, kind string) (models.ToggleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := ikey(userID, eventID, kind)
	if _, ok := m.Items[k]; ok { // 唯一鍵已存在 → 刪除
		delete(m.Items, k)
		return models.ToggleResult{Created: false}, nil
	}
	m.nextID++
	in := models.Interaction{
		ID:        m.nextID,
		UserID:    userID,
		EventID:   eventID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	m.Items[k] = in
	return models.ToggleResult{Created: true, Interaction: in}, nil
}

func (m *MockInteractionRepo) ReportCount(eventID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, in := range m.Items {
		if in.EventID == eventID && in.Kind == models.InteractionReported {
			n++
		}
	}
	return n, nil
}

func (m *MockInteractionRepo) CountsForEvents(eventIDs []string) (map[string]map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCounts {
		return nil, errors.New("counts query failed")
	}
	want := map[string]bool{}
	for _, id := range eventIDs {
		want[id] = true
	}
	out := map[string]map[string]int{}
	for _, in := range m.Items {
		if !want[in.EventID] {
			continue
		}
		if out[in.EventID] == nil {
			out[in.EventID] = map[string]int{}
		}
		out[in.EventID][in.Kind]++
	}
	return out, nil
}

func (m *MockInteractionRepo) RecipientsForEvent(eventID string, kinds []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wantKind := map[string]bool{}
	for _, k := range kinds {
		wantKind[k] = true
	}
	seen := map[string]bool{}
	var out []string
	for _, in := range m.Items {
		if in.EventID != eventID || !wantKind[in.Kind] {
			continue
		}
		email := m.Emails[in.UserID]
		if email == "" || seen[email] {
			continue // email 去重
		}
		seen[email] = true
		out = append(out, email)
	}
	return out, nil
}

/* ---------- history ---------- */

type MockHistoryRepo struct {
	Snapshots []models.EventHistory
	Fail      bool // 模擬快照寫入失敗 → update 要被中止
}

func (m *MockHistoryRepo) Snapshot(e *models.Event, changedBy *int64) error {
	if m.Fail {
		return errors.New("history write failed")
	}
	m.Snapshots = append(m.Snapshots, models.EventHistory{
		ID:        fmt.Sprintf("h%d", len(m.Snapshots)+1),
		EventID:   e.ID,
		ChangedBy: changedBy,
		Snapshot:  models.SnapshotOf(e),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// ListByEvent 跟真 repo 一樣新到舊
func (m *MockHistoryRepo) ListByEvent(eventID string) ([]models.EventHistory, error) {
	var out []models.EventHistory
	for i := len(m.Snapshots) - 1; i >= 0; i-- {
		if m.Snapshots[i].EventID == eventID {
			out = append(out, m.Snapshots[i])
		}
	}
	return out, nil
}

/* ---------- cities / categories / tags ---------- */

type MockCityRepo struct {
	Cities map[string]models.City // key 是 slug
}

func (m *MockCityRepo) ListActive() ([]models.City, error) {
	var out []models.City
	for _, c := range m.Cities {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockCityRepo) GetBySlug(slug string) (models.City, error) {
	c, ok := m.Cities[slug]
	if !ok || !c.IsActive {
		return models.City{}, models.ErrNotFound
	}
	return c, nil
}

type MockCategoryRepo struct {
	Categories map[string]models.Category // key 是 slug
	Events     *MockEventRepo             // protect-on-delete 查引用
}

func (m *MockCategoryRepo) List() ([]models.Category, error) {
	var out []models.Category
	for _, c := range m.Categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *MockCategoryRepo) GetBySlug(slug string) (models.Category, error) {
	c, ok := m.Categories[slug]
	if !ok {
		return models.Category{}, models.ErrNotFound
	}
	return c, nil
}

func (m *MockCategoryRepo) Delete(slug string) error {
	if m.Events != nil {
		if n, _ := m.Events.CountByCategory(slug); n > 0 {
			return models.ErrCategoryInUse
		}
	}
	if _, ok := m.Categories[slug]; !ok {
		return models.ErrNotFound
	}
	delete(m.Categories, slug)
	return nil
}

type MockTagRepo struct {
	Tags map[string]models.Tag // key 是 slug
}

func (m *MockTagRepo) ResolveNames(names []string) ([]models.Tag, error) {
	if m.Tags == nil {
		m.Tags = map[string]models.Tag{}
	}
	seen := map[string]bool{}
	var out []models.Tag
	for _, name := range names {
		slug := utils.Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		t, ok := m.Tags[slug]
		if !ok {
			t = models.Tag{ID: fmt.Sprintf("t%d", len(m.Tags)+1), Name: name, Slug: slug}
			m.Tags[slug] = t
		}
		out = append(out, t)
	}
	return out, nil
}

/* ---------- notifier ---------- */

type SentReminder struct {
	EventID    string
	Recipients []string
}

type MockNotifier struct {
	Reminders []SentReminder
	Published []string // "eventID->email"
	FailFor   map[string]bool
}

func (m *MockNotifier) EventReminder(e models.Event, recipients []string) error {
	if m.FailFor[e.ID] {
		return errors.New("smtp down")
	}
	m.Reminders = append(m.Reminders, SentReminder{EventID: e.ID, Recipients: recipients})
	return nil
}

func (m *MockNotifier) EventPublished(e models.Event, recipient string) error {
	if m.FailFor[e.ID] {
		return errors.New("smtp down")
	}
	m.Published = append(m.Published, e.ID+"->"+recipient)
	return nil
}
