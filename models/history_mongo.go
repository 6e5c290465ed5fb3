package models

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// History Auditor — append-only，引擎永遠不改不刪這個 collection
type mongoHistoryRepo struct {
	col *mongo.Collection
}

func NewMongoHistoryRepository(col *mongo.Collection) HistoryRepository {
	return &mongoHistoryRepo{col: col}
}

// Snapshot 在 update 落地「前」呼叫，存的是改動前的欄位值。
// 這裡失敗的話呼叫端必須放棄整個 update（可稽核是寫入的前置條件）
func (r *mongoHistoryRepo) Snapshot(e *Event, changedBy *int64) error {
	ctx, cancel := opCtx()
	defer cancel()

	h := EventHistory{
		ID:        uuid.NewString(),
		EventID:   e.ID,
		ChangedBy: changedBy,
		Snapshot:  SnapshotOf(e),
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.col.InsertOne(ctx, h)
	return err
}

func (r *mongoHistoryRepo) ListByEvent(eventID string) ([]EventHistory, error) {
	ctx, cancel := opCtx()
	defer cancel()

	cur, err := r.col.Find(ctx,
		bson.M{"event_id": eventID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []EventHistory
	for cur.Next(ctx) {
		var h EventHistory
		if err := cur.Decode(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, cur.Err()
}

// SnapshotOf 攤平可變欄位；mock 跟真 repo 共用同一份定義，快照內容才會一致
func SnapshotOf(e *Event) EventSnapshot {
	s := EventSnapshot{
		Title:         e.Title,
		Description:   e.Description,
		OrganizerName: e.OrganizerName,
		CategoryID:    e.Category.ID,
		Address:       e.Address,
		Neighborhood:  e.Neighborhood,
		CityID:        e.City.ID,
		StartDateTime: e.StartDateTime,
		EndDateTime:   e.EndDateTime,
		IsFree:        e.IsFree,
		PriceInfo:     e.PriceInfo,
		Status:        e.Status,
		IsVerified:    e.IsVerified,
	}
	if e.Location.Type == "Point" {
		s.Location = &LngLatPair{Lng: e.Location.Lng(), Lat: e.Location.Lat()}
	}
	return s
}
