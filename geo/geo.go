// geo/geo.go
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// WGS84 平均半徑 (km)，Mongo $centerSphere 也用這個換算弧度
const EarthRadiusKm = 6371.0

var (
	ErrMalformedBBox    = errors.New("malformed bbox")
	ErrMalformedPolygon = errors.New("malformed polygon")
)

// GeoJSON Point，座標順序固定 [lng, lat]（跟 Mongo 2dsphere 一致）
type Point struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewPoint(lng, lat float64) Point {
	return Point{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p Point) Lng() float64 { return p.Coordinates[0] }
func (p Point) Lat() float64 { return p.Coordinates[1] }

// GeoJSON Polygon；只用第一個 ring（外環），城市邊界不需要洞
type Polygon struct {
	Type        string         `bson:"type" json:"type"`
	Coordinates [][][2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewPolygon(ring [][2]float64) Polygon {
	return Polygon{Type: "Polygon", Coordinates: [][][2]float64{ring}}
}

// Contains 用 ray casting 判斷點在不在外環裡。
// 邊界本身是 advisory 用途，城市尺度下不需要考慮跨 180 度經線。
func (pg Polygon) Contains(pt Point) (bool, error) {
	if pg.Type != "Polygon" || len(pg.Coordinates) == 0 || len(pg.Coordinates[0]) < 3 {
		return false, ErrMalformedPolygon
	}
	ring := pg.Coordinates[0]
	x, y := pt.Lng(), pt.Lat()

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside, nil
}

/* ---------- bbox ---------- */

// 軸對齊矩形：min-lng, min-lat, max-lng, max-lat
type BBox struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

// ParseBBox 解析 "minLng,minLat,maxLng,maxLat"；格式不對就回錯誤，
// 由呼叫端決定要不要忽略（read 端的 bbox 是 advisory）
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, ErrMalformedBBox
	}
	var vals [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, ErrMalformedBBox
		}
		vals[i] = f
	}
	if vals[0] > vals[2] || vals[1] > vals[3] {
		return BBox{}, ErrMalformedBBox // min/max 顛倒的矩形什麼都框不到
	}
	return BBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}, nil
}

// Polygon 把 bbox 展開成閉合的 GeoJSON Polygon（$geoWithin $geometry 用）
func (b BBox) Polygon() Polygon {
	return NewPolygon([][2]float64{
		{b.MinLng, b.MinLat},
		{b.MaxLng, b.MinLat},
		{b.MaxLng, b.MaxLat},
		{b.MinLng, b.MaxLat},
		{b.MinLng, b.MinLat}, // 閉合
	})
}

func (b BBox) Contains(pt Point) bool {
	return pt.Lng() >= b.MinLng && pt.Lng() <= b.MaxLng &&
		pt.Lat() >= b.MinLat && pt.Lat() <= b.MaxLat
}

/* ---------- distance ---------- */

// HaversineKm 球面大圓距離；城市尺度誤差可忽略
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng() - a.Lng()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}
