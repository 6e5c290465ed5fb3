package models

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventmap/geo"
)

type mongoEventRepo struct {
	col *mongo.Collection
}

func NewMongoEventRepository(col *mongo.Collection) EventRepository {
	return &mongoEventRepo{col: col}
}

// EnsureEventIndexes — 2dsphere 給 $geoWithin 用，其他是常用查詢路徑
func EnsureEventIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "start_datetime", Value: 1}}},
		{Keys: bson.D{{Key: "city.slug", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

/* ---------- CRUD ---------- */

func (r *mongoEventRepo) Create(e *Event) error {
	ctx, cancel := opCtx()
	defer cancel()

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.DeletedAt = nil
	e.ViewCount = 0

	_, err := r.col.InsertOne(ctx, e)
	return err
}

// Update 只 $set 可編輯欄位。view_count 走原子 $inc、status 走狀態機，
// 整包覆寫會把同時發生的那些寫入蓋掉
func (r *mongoEventRepo) Update(e *Event) error {
	ctx, cancel := opCtx()
	defer cancel()

	e.UpdatedAt = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"id": e.ID, "deleted_at": nil},
		bson.M{"$set": editableFields(e)},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func editableFields(e *Event) bson.M {
	return bson.M{
		"title":           e.Title,
		"description":     e.Description,
		"organizer_name":  e.OrganizerName,
		"category":        e.Category,
		"tags":            e.Tags,
		"location":        e.Location,
		"address":         e.Address,
		"neighborhood":    e.Neighborhood,
		"city":            e.City,
		"start_datetime":  e.StartDateTime,
		"end_datetime":    e.EndDateTime,
		"is_free":         e.IsFree,
		"price_info":      e.PriceInfo,
		"instagram_url":   e.InstagramURL,
		"ticket_url":      e.TicketURL,
		"cover_image_url": e.CoverImageURL,
		"max_capacity":    e.MaxCapacity,
		"is_recurring":    e.IsRecurring,
		"recurrence_rule": e.RecurrenceRule,
		"updated_at":      e.UpdatedAt,
	}
}

// GetByID — 軟刪除的文件對呼叫端就是不存在
func (r *mongoEventRepo) GetByID(id string) (Event, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var e Event
	err := r.col.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrNotFound
		}
		return Event{}, err
	}
	return e, nil
}

func (r *mongoEventRepo) SoftDelete(id string, at time.Time) error {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"id": id, "deleted_at": nil},
		bson.M{"$set": bson.M{"deleted_at": at.UTC(), "updated_at": at.UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

/* ---------- geo query engine ---------- */

// buildFilter 把 EventFilter 組成單一個 Mongo filter，全部 AND。
// base predicate：沒軟刪除；非 mine view 再加 status=PUBLISHED
func buildFilter(f EventFilter) bson.M {
	filter := bson.M{"deleted_at": nil}

	if f.OrganizerID != nil {
		filter["organizer_user_id"] = *f.OrganizerID // mine：draft 也要看得到
	} else {
		filter["status"] = StatusPublished
	}

	if f.CitySlug != "" {
		filter["city.slug"] = f.CitySlug
	}
	if f.CategorySlug != "" {
		filter["category.slug"] = f.CategorySlug
	}
	if f.IsFree != nil {
		filter["is_free"] = *f.IsFree
	}

	rng := bson.M{}
	if f.StartDate != nil {
		rng["$gte"] = f.StartDate.UTC()
	}
	if f.EndDate != nil {
		rng["$lt"] = f.EndDate.UTC().Add(24 * time.Hour) // 含 end_date 當天整天
	}
	if len(rng) > 0 {
		filter["start_datetime"] = rng
	}

	if f.Query != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}
	}

	// bbox 跟 radius 都是 location 上的運算子，同時出現要用 $and 隔開
	var geoClauses bson.A
	if f.BBox != nil {
		geoClauses = append(geoClauses, bson.M{
			"location": bson.M{"$geoWithin": bson.M{"$geometry": f.BBox.Polygon()}},
		})
	}
	if f.Center != nil && f.RadiusKm > 0 {
		geoClauses = append(geoClauses, bson.M{
			"location": bson.M{"$geoWithin": bson.M{"$centerSphere": bson.A{
				bson.A{f.Center.Lng(), f.Center.Lat()},
				f.RadiusKm / geo.EarthRadiusKm, // 半徑換算成弧度
			}}},
		})
	}
	if len(geoClauses) > 0 {
		filter["$and"] = geoClauses
	}

	return filter
}

func (r *mongoEventRepo) Query(f EventFilter) ([]Event, error) {
	ctx, cancel := opCtx()
	defer cancel()

	sort := bson.D{{Key: "created_at", Value: -1}}
	if f.SortByStart {
		sort = bson.D{{Key: "start_datetime", Value: 1}}
	}

	cur, err := r.col.Find(ctx, buildFilter(f), options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

/* ---------- counters ---------- */

// IncrementViewCount 用 $inc，併發讀者不會互吃 (lost update)
func (r *mongoEventRepo) IncrementViewCount(id string) error {
	ctx, cancel := opCtx()
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"id": id, "deleted_at": nil},
		bson.M{"$inc": bson.M{"view_count": 1}},
	)
	return err
}

/* ---------- lifecycle ---------- */

// ExpireOverdue — PUBLISHED 且 end_datetime 已過 → EXPIRED。
// 沒有 end_datetime 的事件永遠不會自動過期；predicate 本身冪等，重跑零影響
func (r *mongoEventRepo) ExpireOverdue(now time.Time) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{
			"status":       StatusPublished,
			"deleted_at":   nil,
			"end_datetime": bson.M{"$lt": now.UTC()},
		},
		bson.M{"$set": bson.M{"status": StatusExpired, "updated_at": now.UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SetStatus — 帶前置條件的單筆轉移；from 不符就回 false，不報錯
func (r *mongoEventRepo) SetStatus(id string, from []string, to string) (bool, error) {
	ctx, cancel := opCtx()
	defer cancel()

	filter := bson.M{"id": id, "deleted_at": nil}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}
	res, err := r.col.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// PublishBatch — 管理端批次上架；回傳實際被轉移的事件，讓呼叫端通知主辦人
func (r *mongoEventRepo) PublishBatch(ids []string) ([]Event, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var published []Event
	for _, id := range ids {
		var e Event
		err := r.col.FindOneAndUpdate(ctx,
			bson.M{
				"id":         id,
				"deleted_at": nil,
				"status":     bson.M{"$in": bson.A{StatusDraft, StatusCancelled}},
			},
			bson.M{"$set": bson.M{"status": StatusPublished, "updated_at": time.Now().UTC()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&e)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue // 不在可上架狀態就跳過
			}
			return published, err
		}
		published = append(published, e)
	}
	return published, nil
}

func (r *mongoEventRepo) CancelBatch(ids []string) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{"id": bson.M{"$in": ids}, "deleted_at": nil},
		bson.M{"$set": bson.M{"status": StatusCancelled, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

/* ---------- scheduler helpers ---------- */

func (r *mongoEventRepo) StartingBetween(from, to time.Time) ([]Event, error) {
	ctx, cancel := opCtx()
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{
		"status":         StatusPublished,
		"deleted_at":     nil,
		"start_datetime": bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	for cur.Next(ctx) {
		var e Event
		if err := cur.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cur.Err()
}

func (r *mongoEventRepo) CountByCategory(slug string) (int64, error) {
	ctx, cancel := opCtx()
	defer cancel()

	return r.col.CountDocuments(ctx, bson.M{
		"category.slug": slug,
		"deleted_at":    nil,
	})
}
