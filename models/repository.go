package models

import (
	"errors"
	"time"

	"eventmap/geo"
)

/* ---------- status / interaction enums ---------- */

const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
)

const (
	InteractionInterested = "INTERESTED"
	InteractionGoing      = "GOING"
	InteractionSaved      = "SAVED"
	InteractionReported   = "REPORTED"
)

// ValidInteraction 在寫入前擋掉不認識的 kind
func ValidInteraction(kind string) bool {
	switch kind {
	case InteractionInterested, InteractionGoing, InteractionSaved, InteractionReported:
		return true
	}
	return false
}

var (
	ErrNotFound      = errors.New("not found")
	ErrCategoryInUse = errors.New("category is referenced by events")
)

/* ---------- entities ---------- */

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"`
	IsAdmin  bool   `json:"is_admin"`
}

// Profile 跟 User 一對一，註冊時一起建（不靠事後 hook）
type Profile struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	AvatarURL  string `json:"avatar_url"`
	Bio        string `json:"bio"`
	CitySlug   string `json:"city_slug"`
	IsVerified bool   `json:"is_verified"` // verified organizer（管理員核發）
}

type City struct {
	ID          string       `bson:"id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	Slug        string       `bson:"slug" json:"slug"`
	State       string       `bson:"state" json:"state"`
	Country     string       `bson:"country" json:"country"`
	BoundingBox *geo.Polygon `bson:"bounding_box,omitempty" json:"-"` // 事件 pin 的有效範圍；可以沒有
	Center      geo.Point    `bson:"center" json:"center"`
	ZoomDefault float64      `bson:"zoom_default" json:"zoom_default"`
	IsActive    bool         `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
}

type Category struct {
	ID          string `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Slug        string `bson:"slug" json:"slug"`
	Icon        string `bson:"icon" json:"icon"`           // emoji 或 map icon 名
	ColorHex    string `bson:"color_hex" json:"color_hex"` // 地圖 pin 顏色
	Description string `bson:"description" json:"description"`
}

type Tag struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
	Slug string `bson:"slug" json:"slug"`
}

// CityRef 是事件文件裡內嵌的城市摘要（query 用 city.slug）
type CityRef struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
	Slug string `bson:"slug" json:"slug"`
}

// Event — 系統核心實體，存 Mongo，location 是 GeoJSON Point (2dsphere)
// 時間一律 UTC；deleted_at 非 nil 表示已軟刪除，所有對外查詢都要排除
type Event struct {
	ID              string     `bson:"id" json:"id"`
	Title           string     `bson:"title" json:"title"`
	Description     string     `bson:"description" json:"description"`
	OrganizerName   string     `bson:"organizer_name" json:"organizer_name"`
	OrganizerUserID *int64     `bson:"organizer_user_id,omitempty" json:"organizer_user_id,omitempty"` // 使用者刪除後設 nil
	Category        Category   `bson:"category" json:"category"`
	Tags            []Tag      `bson:"tags,omitempty" json:"tags"`
	Location        geo.Point  `bson:"location" json:"location"`
	Address         string     `bson:"address" json:"address"`
	Neighborhood    string     `bson:"neighborhood" json:"neighborhood"`
	City            CityRef    `bson:"city" json:"city"`
	StartDateTime   time.Time  `bson:"start_datetime" json:"start_datetime"`
	EndDateTime     *time.Time `bson:"end_datetime,omitempty" json:"end_datetime,omitempty"`
	IsFree          bool       `bson:"is_free" json:"is_free"`
	PriceInfo       string     `bson:"price_info,omitempty" json:"price_info,omitempty"`
	InstagramURL    string     `bson:"instagram_url,omitempty" json:"instagram_url,omitempty"`
	TicketURL       string     `bson:"ticket_url,omitempty" json:"ticket_url,omitempty"`
	CoverImageURL   string     `bson:"cover_image_url,omitempty" json:"cover_image_url,omitempty"`
	MaxCapacity     *int       `bson:"max_capacity,omitempty" json:"max_capacity,omitempty"`
	IsRecurring     bool       `bson:"is_recurring" json:"is_recurring"`
	RecurrenceRule  string     `bson:"recurrence_rule,omitempty" json:"recurrence_rule,omitempty"` // iCal RRULE，只存不展開
	Status          string     `bson:"status" json:"status"`
	IsVerified      bool       `bson:"is_verified" json:"is_verified"` // 管理員核可標記，跟 organizer 驗證是兩回事
	ViewCount       int64      `bson:"view_count" json:"view_count"`
	DeletedAt       *time.Time `bson:"deleted_at" json:"-"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updated_at"`
}

func (e *Event) IsDeleted() bool { return e.DeletedAt != nil }

type Interaction struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	EventID   string    `json:"event_id"`
	Kind      string    `json:"interaction_type"`
	CreatedAt time.Time `json:"created_at"`
}

// EventHistory — append-only 稽核快照；snapshot 是異動「前」的欄位值
type EventHistory struct {
	ID        string        `bson:"id" json:"id"`
	EventID   string        `bson:"event_id" json:"event_id"`
	ChangedBy *int64        `bson:"changed_by,omitempty" json:"changed_by,omitempty"` // 系統觸發時是 nil
	Snapshot  EventSnapshot `bson:"snapshot" json:"snapshot"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

// EventSnapshot 只收可變欄位，攤平方便 diff
type EventSnapshot struct {
	Title         string      `bson:"title" json:"title"`
	Description   string      `bson:"description" json:"description"`
	OrganizerName string      `bson:"organizer_name" json:"organizer_name"`
	CategoryID    string      `bson:"category_id" json:"category_id"`
	Address       string      `bson:"address" json:"address"`
	Neighborhood  string      `bson:"neighborhood" json:"neighborhood"`
	CityID        string      `bson:"city_id" json:"city_id"`
	StartDateTime time.Time   `bson:"start_datetime" json:"start_datetime"`
	EndDateTime   *time.Time  `bson:"end_datetime,omitempty" json:"end_datetime,omitempty"`
	IsFree        bool        `bson:"is_free" json:"is_free"`
	PriceInfo     string      `bson:"price_info" json:"price_info"`
	Status        string      `bson:"status" json:"status"`
	IsVerified    bool        `bson:"is_verified" json:"is_verified"`
	Location      *LngLatPair `bson:"location,omitempty" json:"location,omitempty"`
}

type LngLatPair struct {
	Lng float64 `bson:"lng" json:"lng"`
	Lat float64 `bson:"lat" json:"lat"`
}

/* ---------- query filter ---------- */

// EventFilter — Geo Query Engine 的可組合條件，零值代表不套用
type EventFilter struct {
	CitySlug     string
	CategorySlug string
	IsFree       *bool
	StartDate    *time.Time // 含當天（跟 start_datetime 的日期比）
	EndDate      *time.Time // 含當天
	BBox         *geo.BBox
	Query        string // title/description 子字串（OR 後再 AND）
	Center       *geo.Point
	RadiusKm     float64 // Center 跟 RadiusKm 要同時給才生效
	OrganizerID  *int64  // mine view：改用擁有者過濾，draft 也要出現
	SortByStart  bool    // nearby 用開始時間排序，其他用 created_at desc
}

/* ---------- toggle result ---------- */

type ToggleResult struct {
	Created     bool
	Interaction Interaction // Created=true 才有值
}

/* ===== Users ===== */
type UserRepository interface {
	Create(u *User) error // 一定連 Profile 一起建
	ValidateCredentials(email, plain string) (User, error)
	GetByID(id int64) (User, error)
	GetProfile(userID int64) (Profile, error)
	SetVerifiedOrganizer(userID int64, verified bool) error
}

/* ===== Events ===== */
type EventRepository interface {
	Create(e *Event) error
	Update(e *Event) error
	GetByID(id string) (Event, error) // 軟刪除的視同不存在
	SoftDelete(id string, at time.Time) error
	Query(f EventFilter) ([]Event, error)

	IncrementViewCount(id string) error // 原子 $inc，不做 read-modify-write

	// lifecycle（狀態機轉移都走這幾個，不開放任意 set）
	ExpireOverdue(now time.Time) (int64, error)                  // PUBLISHED + end<now → EXPIRED
	SetStatus(id string, from []string, to string) (bool, error) // from 不符就不動
	PublishBatch(ids []string) ([]Event, error)                  // DRAFT/CANCELLED → PUBLISHED，回實際轉移的
	CancelBatch(ids []string) (int64, error)                     // 任何狀態 → CANCELLED

	StartingBetween(from, to time.Time) ([]Event, error) // reminder 視窗
	CountByCategory(slug string) (int64, error)          // protect-on-delete 用
}

/* ===== Interactions ===== */
type InteractionRepository interface {
	Toggle(userID int64, eventID, kind string) (ToggleResult, error)
	ReportCount(eventID string) (int, error)
	CountsForEvents(eventIDs []string) (map[string]map[string]int, error)
	RecipientsForEvent(eventID string, kinds []string) ([]string, error) // email 去重
}

/* ===== History ===== */
type HistoryRepository interface {
	Snapshot(e *Event, changedBy *int64) error // 失敗就要中止後面的 update
	ListByEvent(eventID string) ([]EventHistory, error)
}

/* ===== Cities ===== */
type CityRepository interface {
	ListActive() ([]City, error)
	GetBySlug(slug string) (City, error)
}

/* ===== Categories / Tags ===== */
type CategoryRepository interface {
	List() ([]Category, error)
	GetBySlug(slug string) (Category, error)
	Delete(slug string) error // 有事件引用就拒絕
}

type TagRepository interface {
	ResolveNames(names []string) ([]Tag, error) // slug 去重，不存在就建，冪等
}
