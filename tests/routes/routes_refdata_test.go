// 測試目的：cities / categories 讀取端點
package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"eventmap/models"
)

func TestCities_ListAndGet(t *testing.T) {
	d := setupServerWithDeps(t, true)

	w := doReq(d.s, http.MethodGet, "/cities", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var cities []models.City
	if err := json.Unmarshal(w.Body.Bytes(), &cities); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cities) != 1 || cities[0].Slug != "porto-alegre" {
		t.Fatalf("unexpected cities: %+v", cities)
	}

	w = doReq(d.s, http.MethodGet, "/cities/porto-alegre", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var city models.City
	if err := json.Unmarshal(w.Body.Bytes(), &city); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if city.Name != "Porto Alegre" || city.Center.Lng() != poaCenter.Lng() {
		t.Fatalf("unexpected city detail: %+v", city)
	}

	w = doReq(d.s, http.MethodGet, "/cities/atlantis", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown city: want 404, got %d", w.Code)
	}
}

func TestCategories_List(t *testing.T) {
	d := setupServerWithDeps(t, true)

	w := doReq(d.s, http.MethodGet, "/categories", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var cats []models.Category
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) != 1 || cats[0].Slug != "music" {
		t.Fatalf("unexpected categories: %+v", cats)
	}
}
