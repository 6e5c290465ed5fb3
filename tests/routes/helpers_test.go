package tests

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventmap/geo"
	"eventmap/models"
	"eventmap/routes"
	"eventmap/tests/mocks"
	"eventmap/utils"
)

/* ---------- helpers ---------- */

// 測試座標：Porto Alegre 的 bbox / 市中心，São Paulo 當界外點（約 1100 km 遠）
var (
	poaBBox   = geo.BBox{MinLng: -51.27, MinLat: -30.23, MaxLng: -51.05, MaxLat: -30.00}
	poaCenter = geo.NewPoint(-51.2177, -30.0346)
	spPoint   = geo.NewPoint(-46.6333, -23.5505)
)

type serverDeps struct {
	s     *gin.Engine
	users *mocks.MockUserRepo
	ev    *mocks.MockEventRepo
	inter *mocks.MockInteractionRepo
	hist  *mocks.MockHistoryRepo
	notif *mocks.MockNotifier

	deps routes.Deps
	rdb  *redis.Client
}

func poaCity(withBounds bool) models.City {
	c := models.City{
		ID:       "city-poa",
		Name:     "Porto Alegre",
		Slug:     "porto-alegre",
		State:    "RS",
		Country:  "BR",
		Center:   poaCenter,
		IsActive: true,
	}
	if withBounds {
		poly := poaBBox.Polygon()
		c.BoundingBox = &poly
	}
	return c
}

func setupServerWithDeps(t *testing.T, cityHasBounds bool) serverDeps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inv := utils.NewCacheInvalidator(rdb)

	users := mocks.NewMockUserRepo()
	ev := mocks.NewMockEventRepo()
	inter := mocks.NewMockInteractionRepo()
	hist := &mocks.MockHistoryRepo{}
	notif := &mocks.MockNotifier{}

	cities := &mocks.MockCityRepo{Cities: map[string]models.City{
		"porto-alegre": poaCity(cityHasBounds),
	}}
	cats := &mocks.MockCategoryRepo{Categories: map[string]models.Category{
		"music": {ID: "cat-music", Name: "Music", Slug: "music", Icon: "🎵", ColorHex: "#3B82F6"},
	}, Events: ev}
	tags := &mocks.MockTagRepo{}

	deps := routes.Deps{
		Users:           users,
		Events:          ev,
		Interactions:    inter,
		History:         hist,
		Cities:          cities,
		Categories:      cats,
		Tags:            tags,
		Notifier:        notif,
		Inv:             inv,
		ReportThreshold: 5,
	}
	s := gin.New()
	routes.RegisterRoutes(s, deps, rdb, 2000)

	return serverDeps{
		s: s, users: users, ev: ev, inter: inter, hist: hist, notif: notif,
		deps: deps, rdb: rdb,
	}
}

// rebuildServer 換掉 events repo 重掛一次路由（錯誤注入用）
func rebuildServer(t *testing.T, d serverDeps, events models.EventRepository) *gin.Engine {
	t.Helper()
	return rebuildServerWith(t, d, func(deps *routes.Deps) { deps.Events = events })
}

// rebuildServerWith 可以改任意 dep 重掛路由
func rebuildServerWith(t *testing.T, d serverDeps, mutate func(*routes.Deps)) *gin.Engine {
	t.Helper()
	deps := d.deps
	mutate(&deps)
	s := gin.New()
	routes.RegisterRoutes(s, deps, d.rdb, 2000)
	return s
}

func authToken(t *testing.T, uid int64) string {
	t.Helper()
	token, err := utils.GenerateToken("tester@example.com", uid)
	if err != nil {
		t.Fatalf("gen token: %v", err)
	}
	return token
}

func doReq(s *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	s.ServeHTTP(w, req)
	return w
}

// seedEvent 直接塞進 mock store（不經 HTTP），預設 PUBLISHED、在 POA 市中心
func seedEvent(d serverDeps, id string, mutate func(*models.Event)) models.Event {
	owner := int64(1)
	start := time.Now().UTC().Add(48 * time.Hour)
	e := models.Event{
		ID:              id,
		Title:           "Feira de Vinil",
		Description:     "Discos e som na praça",
		OrganizerName:   "Coletivo Som",
		OrganizerUserID: &owner,
		Category:        models.Category{ID: "cat-music", Name: "Music", Slug: "music"},
		Location:        poaCenter,
		City:            models.CityRef{ID: "city-poa", Name: "Porto Alegre", Slug: "porto-alegre"},
		StartDateTime:   start,
		IsFree:          true,
		Status:          models.StatusPublished,
	}
	if mutate != nil {
		mutate(&e)
	}
	d.ev.Items[e.ID] = e
	return e
}
