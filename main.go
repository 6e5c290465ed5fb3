package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eventmap/config"
	"eventmap/db"
	"eventmap/middlewares"
	"eventmap/models"
	"eventmap/notify"
	"eventmap/routes"
	"eventmap/scheduler"
	"eventmap/utils"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("config load error:", err)
	}
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	// Postgres — identity + interaction ledger
	sqldb, err := db.InitDB(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal("Postgres init error:", err)
	}

	// Mongo — events / cities / catalog / history
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mg, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("mongo.Connect error:", err)
	}
	if err := mg.Ping(ctx, nil); err != nil {
		log.Fatal("Mongo ping error:", err)
	}
	defer func() { _ = mg.Disconnect(context.Background()) }()

	mdb := mg.Database(cfg.Mongo.Database)
	eventsCol := mdb.Collection("events")
	citiesCol := mdb.Collection("cities")
	categoriesCol := mdb.Collection("categories")
	tagsCol := mdb.Collection("tags")
	historyCol := mdb.Collection("event_history")

	if err := models.EnsureEventIndexes(ctx, eventsCol); err != nil {
		log.Fatal("event indexes error:", err)
	}
	if err := models.EnsureTagIndexes(ctx, tagsCol); err != nil {
		log.Fatal("tag indexes error:", err)
	}

	// Redis — 回應快取 + 每日配額
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	inv := utils.NewCacheInvalidator(rdb)

	// Repositories
	events := models.NewMongoEventRepository(eventsCol)
	users := models.NewSQLUserRepository(sqldb)
	interactions := models.NewSQLInteractionRepository(sqldb)
	history := models.NewMongoHistoryRepository(historyCol)
	cities := models.NewMongoCityRepository(citiesCol)
	categories := models.NewMongoCategoryRepository(categoriesCol, events)
	tags := models.NewMongoTagRepository(tagsCol)

	notifier := notify.NewLogNotifier()

	// 背景：view counter worker + 排程 jobs（跟請求處理各自獨立）
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	views := scheduler.NewViewCounter(events, cfg.Scheduler.ViewBufferSize)
	views.Start(bgCtx)

	sched := scheduler.New(
		scheduler.ExpireJob(events, cfg.Scheduler.ExpireEvery),
		scheduler.RemindJob(events, interactions, notifier, cfg.Scheduler.RemindEvery),
	)
	sched.Start(bgCtx)

	// Gin + middlewares
	server := gin.Default()
	server.Use(middlewares.ResponseCache(rdb, cfg.Cache.TTL))

	routes.RegisterRoutes(server, routes.Deps{
		Users:           users,
		Events:          events,
		Interactions:    interactions,
		History:         history,
		Cities:          cities,
		Categories:      categories,
		Tags:            tags,
		Notifier:        notifier,
		Views:           views,
		Inv:             inv,
		ReportThreshold: cfg.Moderation.ReportThreshold,
	}, rdb, cfg.Quota.DailyLimit)

	if err := server.Run(cfg.Server.Addr); err != nil {
		log.Fatal("gin.Run error:", err)
	}
}
