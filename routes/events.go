// routes/events.go — 讀取面：list / search / nearby / single / mine + GeoJSON 輸出
package routes

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"eventmap/geo"
	"eventmap/models"
)

/* ---------- GeoJSON rendering ---------- */

// 回應用的靜態 struct，不做動態欄位組裝
type EventProperties struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	OrganizerName     string           `json:"organizer_name"`
	Category          models.Category  `json:"category"`
	Tags              []models.Tag     `json:"tags"`
	Address           string           `json:"address"`
	Neighborhood      string           `json:"neighborhood"`
	City              models.CityRef   `json:"city"`
	StartDateTime     time.Time        `json:"start_datetime"`
	EndDateTime       *time.Time       `json:"end_datetime,omitempty"`
	IsFree            bool             `json:"is_free"`
	PriceInfo         string           `json:"price_info,omitempty"`
	InstagramURL      string           `json:"instagram_url,omitempty"`
	TicketURL         string           `json:"ticket_url,omitempty"`
	CoverImageURL     string           `json:"cover_image_url,omitempty"`
	MaxCapacity       *int             `json:"max_capacity,omitempty"`
	IsRecurring       bool             `json:"is_recurring"`
	Status            string           `json:"status"`
	IsVerified        bool             `json:"is_verified"`
	ViewCount         int64            `json:"view_count"`
	InteractionCounts map[string]int   `json:"interaction_counts"`
	CreatedAt         time.Time        `json:"created_at"`
}

type Feature struct {
	Type       string          `json:"type"`
	Geometry   geo.Point       `json:"geometry"`
	Properties EventProperties `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func emptyCollection() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

func toFeature(e models.Event, counts map[string]int) Feature {
	tags := e.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return Feature{
		Type:     "Feature",
		Geometry: e.Location,
		Properties: EventProperties{
			ID:                e.ID,
			Title:             e.Title,
			Description:       e.Description,
			OrganizerName:     e.OrganizerName,
			Category:          e.Category,
			Tags:              tags,
			Address:           e.Address,
			Neighborhood:      e.Neighborhood,
			City:              e.City,
			StartDateTime:     e.StartDateTime,
			EndDateTime:       e.EndDateTime,
			IsFree:            e.IsFree,
			PriceInfo:         e.PriceInfo,
			InstagramURL:      e.InstagramURL,
			TicketURL:         e.TicketURL,
			CoverImageURL:     e.CoverImageURL,
			MaxCapacity:       e.MaxCapacity,
			IsRecurring:       e.IsRecurring,
			Status:            e.Status,
			IsVerified:        e.IsVerified,
			ViewCount:         e.ViewCount,
			InteractionCounts: counts,
			CreatedAt:         e.CreatedAt,
		},
	}
}

// featureCollection 組整包 GeoJSON，互動數一次撈齊。
// 互動數撈不到就給空 map — 讀取面寧可少資訊也不要掛掉
func (d Deps) featureCollection(events []models.Event) FeatureCollection {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	counts, err := d.Interactions.CountsForEvents(ids)
	if err != nil {
		log.Printf("[events] interaction counts failed: %v", err)
		counts = nil
	}

	fc := emptyCollection()
	for _, e := range events {
		fc.Features = append(fc.Features, toFeature(e, counts[e.ID]))
	}
	return fc
}

/* ---------- filter parsing ---------- */

// parseFilters — 全部 optional；bbox / 日期格式錯就當沒給（advisory，只記 log）
func parseFilters(c *gin.Context) models.EventFilter {
	f := models.EventFilter{
		CitySlug:     c.Query("city"),
		CategorySlug: c.Query("category"),
		Query:        strings.TrimSpace(c.Query("q")),
	}

	switch c.Query("is_free") {
	case "true", "1":
		v := true
		f.IsFree = &v
	case "false", "0":
		v := false
		f.IsFree = &v
	}

	if s := c.Query("start_date"); s != "" {
		if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
			f.StartDate = &t
		}
	}
	if s := c.Query("end_date"); s != "" {
		if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
			f.EndDate = &t
		}
	}

	if s := c.Query("bbox"); s != "" {
		if b, err := geo.ParseBBox(s); err == nil {
			f.BBox = &b
		} else {
			log.Printf("[events] ignoring malformed bbox %q", s)
		}
	}

	return f
}

/* ------------------- Reads -------------------- */

// GET /events — GeoJSON FeatureCollection；查詢掛了回空集合，不回 5xx
func (d Deps) listEvents(c *gin.Context) {
	events, err := d.Events.Query(parseFilters(c))
	if err != nil {
		log.Printf("[events] list query failed: %v", err)
		c.JSON(http.StatusOK, emptyCollection())
		return
	}
	c.JSON(http.StatusOK, d.featureCollection(events))
}

// GET /events/search?q= — 跟 list 同一套過濾組合，關鍵字導向
func (d Deps) searchEvents(c *gin.Context) {
	d.listEvents(c)
}

// GET /events/nearby?lat=&lng=&radius_km= — lat/lng 必填，radius 預設 5km
func (d Deps) nearbyEvents(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Required: lat, lng. Optional: radius_km (default 5).",
		})
		return
	}

	radius := 5.0
	if s := c.Query("radius_km"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			radius = v
		}
	}

	f := parseFilters(c)
	center := geo.NewPoint(lng, lat)
	f.Center = &center
	f.RadiusKm = radius
	f.SortByStart = true

	events, err := d.Events.Query(f)
	if err != nil {
		log.Printf("[events] nearby query failed: %v", err)
		c.JSON(http.StatusOK, emptyCollection())
		return
	}
	c.JSON(http.StatusOK, d.featureCollection(events))
}

// GET /events/:id — 軟刪除視同 404；view count 增量丟到背景，不佔讀取延遲
func (d Deps) getEvent(c *gin.Context) {
	id := c.Param("id")

	event, err := d.Events.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch event. Try again later."})
		return
	}

	if d.Views != nil {
		d.Views.Enqueue(id)
	}

	counts, err := d.Interactions.CountsForEvents([]string{id})
	if err != nil {
		log.Printf("[events] interaction counts failed: %v", err)
		counts = nil
	}
	c.JSON(http.StatusOK, toFeature(event, counts[id]))
}

// GET /events/mine — 自己的事件，draft 也列出來；只排除軟刪除
func (d Deps) myEvents(c *gin.Context) {
	uid := c.GetInt64("userId")

	f := parseFilters(c)
	f.OrganizerID = &uid

	events, err := d.Events.Query(f)
	if err != nil {
		log.Printf("[events] mine query failed: %v", err)
		c.JSON(http.StatusOK, emptyCollection())
		return
	}
	c.JSON(http.StatusOK, d.featureCollection(events))
}
