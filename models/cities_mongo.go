package models

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// 城市是唯讀 reference data（管理端維護），引擎只讀：
// 列表給地圖初始畫面，bounding_box 給建立/更新時的 containment check
type mongoCityRepo struct {
	col *mongo.Collection
}

func NewMongoCityRepository(col *mongo.Collection) CityRepository {
	return &mongoCityRepo{col: col}
}

func (r *mongoCityRepo) ListActive() ([]City, error) {
	ctx, cancel := opCtx()
	defer cancel()

	cur, err := r.col.Find(ctx,
		bson.M{"is_active": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []City
	for cur.Next(ctx) {
		var c City
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, cur.Err()
}

func (r *mongoCityRepo) GetBySlug(slug string) (City, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var c City
	err := r.col.FindOne(ctx, bson.M{"slug": slug, "is_active": true}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return City{}, ErrNotFound
		}
		return City{}, err
	}
	return c, nil
}
