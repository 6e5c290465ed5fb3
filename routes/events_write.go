// routes/events_write.go — 寫入面：create / update / delete / interact / 管理端批次
package routes

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventmap/geo"
	"eventmap/metrics"
	"eventmap/models"
)

type eventPayload struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	OrganizerName  string     `json:"organizer_name" binding:"required"`
	Category       string     `json:"category" binding:"required"` // slug
	TagNames       []string   `json:"tag_names"`
	Lng            *float64   `json:"lng" binding:"required"`
	Lat            *float64   `json:"lat" binding:"required"`
	Address        string     `json:"address"`
	Neighborhood   string     `json:"neighborhood"`
	City           string     `json:"city" binding:"required"` // slug
	StartDateTime  time.Time  `json:"start_datetime" binding:"required"`
	EndDateTime    *time.Time `json:"end_datetime"`
	IsFree         *bool      `json:"is_free"`
	PriceInfo      string     `json:"price_info"`
	InstagramURL   string     `json:"instagram_url"`
	TicketURL      string     `json:"ticket_url"`
	CoverImageURL  string     `json:"cover_image_url"`
	MaxCapacity    *int       `json:"max_capacity"`
	IsRecurring    bool       `json:"is_recurring"`
	RecurrenceRule string     `json:"recurrence_rule"`
}

// checkBounds — 建立/更新時對指定城市的 containment check。
// 在界外 → ok=false（這是硬性 400，跟讀取端 advisory 的 bbox 不同）；
// 檢查本身壞掉（幾何有問題）→ 記 log 放行，防禦性檢查不該變成 5xx
func checkBounds(city models.City, pt geo.Point) bool {
	if city.BoundingBox == nil {
		return true
	}
	inside, err := city.BoundingBox.Contains(pt)
	if err != nil {
		log.Printf("[events] bbox check failed for %s: %v", city.Slug, err)
		return true
	}
	return inside
}

func outOfBounds(c *gin.Context, city models.City) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{
		"location": fmt.Sprintf("Coordinates are outside the valid area for %s.", city.Name),
	}})
}

// POST /events — verified organizer 直接 PUBLISHED，其他人進 DRAFT 等審核
func (d Deps) createEvent(c *gin.Context) {
	uid := c.GetInt64("userId")

	var p eventPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	city, err := d.Cities.GetBySlug(p.City)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"city": "Unknown or inactive city."}})
		return
	}
	category, err := d.Categories.GetBySlug(p.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"category": "Unknown category."}})
		return
	}

	location := geo.NewPoint(*p.Lng, *p.Lat)
	if !checkBounds(city, location) {
		outOfBounds(c, city)
		return
	}

	tags, err := d.Tags.ResolveNames(p.TagNames)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create event. Try again later."})
		return
	}

	// 初始狀態：verified organizer → PUBLISHED，否則 DRAFT
	status := models.StatusDraft
	if prof, err := d.Users.GetProfile(uid); err == nil && prof.IsVerified {
		status = models.StatusPublished
	}

	isFree := true
	if p.IsFree != nil {
		isFree = *p.IsFree
	}

	event := models.Event{
		ID:              uuid.NewString(),
		Title:           p.Title,
		Description:     p.Description,
		OrganizerName:   p.OrganizerName,
		OrganizerUserID: &uid,
		Category:        category,
		Tags:            tags,
		Location:        location,
		Address:         p.Address,
		Neighborhood:    p.Neighborhood,
		City:            models.CityRef{ID: city.ID, Name: city.Name, Slug: city.Slug},
		StartDateTime:   p.StartDateTime.UTC(),
		EndDateTime:     p.EndDateTime,
		IsFree:          isFree,
		PriceInfo:       p.PriceInfo,
		InstagramURL:    p.InstagramURL,
		TicketURL:       p.TicketURL,
		CoverImageURL:   p.CoverImageURL,
		MaxCapacity:     p.MaxCapacity,
		IsRecurring:     p.IsRecurring,
		RecurrenceRule:  p.RecurrenceRule,
		Status:          status,
	}
	if event.EndDateTime != nil {
		t := event.EndDateTime.UTC()
		event.EndDateTime = &t
	}

	if err := d.Events.Create(&event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not create event. Try again later."})
		return
	}

	// 事件後：清除列表與單筆快取
	if d.Inv != nil {
		d.Inv.PurgeEventsList(c)
		d.Inv.PurgeEventItem(c, event.ID)
	}

	c.JSON(http.StatusCreated, gin.H{"message": "event created!", "event": toFeature(event, nil)})
}

// 部分更新：全部指標欄位，nil 代表沒給、不動
type eventPatch struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	OrganizerName  *string    `json:"organizer_name"`
	Category       *string    `json:"category"`
	TagNames       *[]string  `json:"tag_names"` // 給了就整組重解析取代
	Lng            *float64   `json:"lng"`
	Lat            *float64   `json:"lat"`
	Address        *string    `json:"address"`
	Neighborhood   *string    `json:"neighborhood"`
	City           *string    `json:"city"`
	StartDateTime  *time.Time `json:"start_datetime"`
	EndDateTime    *time.Time `json:"end_datetime"`
	IsFree         *bool      `json:"is_free"`
	PriceInfo      *string    `json:"price_info"`
	InstagramURL   *string    `json:"instagram_url"`
	TicketURL      *string    `json:"ticket_url"`
	CoverImageURL  *string    `json:"cover_image_url"`
	MaxCapacity    *int       `json:"max_capacity"`
	IsRecurring    *bool      `json:"is_recurring"`
	RecurrenceRule *string    `json:"recurrence_rule"`
}

// PATCH /events/:id — 只有擁有者能改；先快照再落地，快照失敗整個 update 中止
func (d Deps) updateEvent(c *gin.Context) {
	id := c.Param("id")
	uid := c.GetInt64("userId")

	old, err := d.Events.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch the event. Try again later."})
		return
	}
	if old.OrganizerUserID == nil || *old.OrganizerUserID != uid {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized to update event."})
		return
	}

	var p eventPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	updated := old

	if p.Title != nil {
		updated.Title = *p.Title
	}
	if p.Description != nil {
		updated.Description = *p.Description
	}
	if p.OrganizerName != nil {
		updated.OrganizerName = *p.OrganizerName
	}
	if p.Address != nil {
		updated.Address = *p.Address
	}
	if p.Neighborhood != nil {
		updated.Neighborhood = *p.Neighborhood
	}
	if p.StartDateTime != nil {
		updated.StartDateTime = p.StartDateTime.UTC()
	}
	if p.EndDateTime != nil {
		t := p.EndDateTime.UTC()
		updated.EndDateTime = &t
	}
	if p.IsFree != nil {
		updated.IsFree = *p.IsFree
	}
	if p.PriceInfo != nil {
		updated.PriceInfo = *p.PriceInfo
	}
	if p.InstagramURL != nil {
		updated.InstagramURL = *p.InstagramURL
	}
	if p.TicketURL != nil {
		updated.TicketURL = *p.TicketURL
	}
	if p.CoverImageURL != nil {
		updated.CoverImageURL = *p.CoverImageURL
	}
	if p.MaxCapacity != nil {
		updated.MaxCapacity = p.MaxCapacity
	}
	if p.IsRecurring != nil {
		updated.IsRecurring = *p.IsRecurring
	}
	if p.RecurrenceRule != nil {
		updated.RecurrenceRule = *p.RecurrenceRule
	}

	if p.Category != nil {
		category, err := d.Categories.GetBySlug(*p.Category)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"category": "Unknown category."}})
			return
		}
		updated.Category = category
	}

	city := models.City{ID: old.City.ID, Name: old.City.Name, Slug: old.City.Slug}
	cityChanged := false
	if p.City != nil {
		full, err := d.Cities.GetBySlug(*p.City)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"city": "Unknown or inactive city."}})
			return
		}
		city = full
		updated.City = models.CityRef{ID: full.ID, Name: full.Name, Slug: full.Slug}
		cityChanged = true
	}

	// location 動了（或城市換了）就要重跑 containment check，政策跟建立時一樣
	if p.Lng != nil || p.Lat != nil || cityChanged {
		lng, lat := updated.Location.Lng(), updated.Location.Lat()
		if p.Lng != nil {
			lng = *p.Lng
		}
		if p.Lat != nil {
			lat = *p.Lat
		}
		updated.Location = geo.NewPoint(lng, lat)

		if !cityChanged {
			// patch 只帶座標時 city ref 沒有 boundary，要補撈；
			// 撈不到就跳過 containment check，不連坐擋掉更新
			if full, err := d.Cities.GetBySlug(old.City.Slug); err == nil {
				city = full
			} else {
				log.Printf("[events] boundary fetch for %s failed, skipping containment check: %v", old.City.Slug, err)
			}
		}
		if !checkBounds(city, updated.Location) {
			outOfBounds(c, city)
			return
		}
	}

	if p.TagNames != nil {
		tags, err := d.Tags.ResolveNames(*p.TagNames)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not update event. Try again later."})
			return
		}
		updated.Tags = tags
	}

	// 快照存「改動前」的狀態；存不進去就放棄整個 update — 可稽核是寫入的前置條件
	if err := d.History.Snapshot(&old, &uid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not record event history."})
		return
	}

	if err := d.Events.Update(&updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not update event. Try again later."})
		return
	}

	if d.Inv != nil {
		d.Inv.PurgeEventsList(c)
		d.Inv.PurgeEventItem(c, updated.ID)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event updated successfully!"})
}

// DELETE /events/:id — 軟刪除：只標 deleted_at，列永遠不真的刪
func (d Deps) deleteEvent(c *gin.Context) {
	id := c.Param("id")
	uid := c.GetInt64("userId")

	event, err := d.Events.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch the event. Try again later."})
		return
	}
	if event.OrganizerUserID == nil || *event.OrganizerUserID != uid {
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized to delete event."})
		return
	}

	if err := d.Events.SoftDelete(id, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not delete the event."})
		return
	}

	if d.Inv != nil {
		d.Inv.PurgeEventsList(c)
		d.Inv.PurgeEventItem(c, id)
	}

	c.Status(http.StatusNoContent)
}

/* ----------------- Interactions ------------------ */

// POST /events/:id/interact — toggle：沒有就建 (201)，有了就刪 (200)。
// REPORTED 建立成功後數總數，達門檻自動 PUBLISHED→DRAFT
func (d Deps) interact(c *gin.Context) {
	uid := c.GetInt64("userId")
	id := c.Param("id")

	var req struct {
		Kind string `json:"interaction_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}
	if !models.ValidInteraction(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid interaction_type. Choose from: INTERESTED, GOING, SAVED, REPORTED.",
		})
		return
	}

	event, err := d.Events.GetByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Event not found."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch the event. Try again later."})
		return
	}

	res, err := d.Interactions.Toggle(uid, event.ID, req.Kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not record interaction."})
		return
	}

	if d.Inv != nil {
		d.Inv.PurgeEventsList(c) // 互動數會顯示在列表上
	}

	if !res.Created {
		c.JSON(http.StatusOK, gin.H{"detail": req.Kind + " removed."})
		return
	}

	// 審核副作用只在「建立」時跑，移除不算
	if req.Kind == models.InteractionReported {
		count, err := d.Interactions.ReportCount(event.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not record interaction."})
			return
		}
		if count >= d.ReportThreshold {
			demoted, err := d.Events.SetStatus(event.ID,
				[]string{models.StatusPublished}, models.StatusDraft)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not record interaction."})
				return
			}
			if demoted {
				metrics.AutoDemotions.Inc()
				log.Printf("[events] auto-demoted %s after %d reports", event.ID, count)
			}
		}
	}

	c.JSON(http.StatusCreated, gin.H{"interaction": res.Interaction})
}

/* -------------------- Admin ---------------------- */

// POST /admin/events/publish — DRAFT/CANCELLED → PUBLISHED，主辦人收通知
func (d Deps) publishEvents(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	published, err := d.Events.PublishBatch(req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not publish events."})
		return
	}

	for _, e := range published {
		if e.OrganizerUserID == nil || d.Notifier == nil {
			continue
		}
		u, err := d.Users.GetByID(*e.OrganizerUserID)
		if err != nil {
			continue
		}
		if err := d.Notifier.EventPublished(e, u.Email); err != nil {
			log.Printf("[events] publish notification for %s failed: %v", e.ID, err)
		}
	}

	if d.Inv != nil {
		d.Inv.PurgeEventsList(c)
		for _, e := range published {
			d.Inv.PurgeEventItem(c, e.ID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d event(s) published.", len(published))})
}

// POST /admin/events/cancel — 任何狀態 → CANCELLED
func (d Deps) cancelEvents(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not parse request data."})
		return
	}

	n, err := d.Events.CancelBatch(req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not cancel events."})
		return
	}

	if d.Inv != nil {
		d.Inv.PurgeEventsList(c)
		for _, id := range req.IDs {
			d.Inv.PurgeEventItem(c, id)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d event(s) cancelled.", n)})
}

// GET /admin/events/:id/history — 稽核軌跡（新的在前）
func (d Deps) eventHistory(c *gin.Context) {
	items, err := d.History.ListByEvent(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not fetch event history."})
		return
	}
	if items == nil {
		items = []models.EventHistory{}
	}
	c.JSON(http.StatusOK, gin.H{"history": items})
}
