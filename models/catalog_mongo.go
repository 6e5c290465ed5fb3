package models

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventmap/utils"
)

/* ---------- categories ---------- */

type mongoCategoryRepo struct {
	col    *mongo.Collection
	events EventRepository // protect-on-delete 要數引用
}

func NewMongoCategoryRepository(col *mongo.Collection, events EventRepository) CategoryRepository {
	return &mongoCategoryRepo{col: col, events: events}
}

func (r *mongoCategoryRepo) List() ([]Category, error) {
	ctx, cancel := opCtx()
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Category
	for cur.Next(ctx) {
		var c Category
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, cur.Err()
}

func (r *mongoCategoryRepo) GetBySlug(slug string) (Category, error) {
	ctx, cancel := opCtx()
	defer cancel()

	var c Category
	err := r.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

// Delete — protect-on-delete：還有事件引用就拒絕
func (r *mongoCategoryRepo) Delete(slug string) error {
	n, err := r.events.CountByCategory(slug)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}

	ctx, cancel := opCtx()
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

/* ---------- tags ---------- */

type mongoTagRepo struct {
	col *mongo.Collection
}

func NewMongoTagRepository(col *mongo.Collection) TagRepository {
	return &mongoTagRepo{col: col}
}

// EnsureTagIndexes — slug 唯一鍵，upsert 去重的依據
func EnsureTagIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// ResolveNames — 每個名字 slugify 後查或建（冪等）。
// "São João" 跟 "sao joao" 會落在同一個 slug，重複名字只處理一次
func (r *mongoTagRepo) ResolveNames(names []string) ([]Tag, error) {
	ctx, cancel := opCtx()
	defer cancel()

	seen := make(map[string]bool, len(names))
	var out []Tag

	for _, name := range names {
		slug := utils.Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		var t Tag
		err := r.col.FindOneAndUpdate(ctx,
			bson.M{"slug": slug},
			bson.M{"$setOnInsert": bson.M{"id": uuid.NewString(), "name": name, "slug": slug}},
			options.FindOneAndUpdate().
				SetUpsert(true).
				SetReturnDocument(options.After),
		).Decode(&t)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
