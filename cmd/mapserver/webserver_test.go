// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"rastermap/internal/classify"
	"rastermap/internal/geo"
	"rastermap/internal/mapfile"
	"rastermap/internal/render"
)

func makeTestWebserver(t *testing.T, withStore bool) *Webserver {
	t.Helper()

	renderer, err := render.NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	ws := &Webserver{renderer: renderer}
	if !withStore {
		return ws
	}

	b := mapfile.NewBuilder()
	tile := b.Tile(geo.TileID(geo.LatLon{Lat: 47.5, Lon: 8.5}))
	tile.AddFeature(mapfile.Feature{
		ID:       1,
		Geometry: geo.Polygon,
		Coordinates: []geo.LatLon{
			{Lat: 47.2, Lon: 8.2},
			{Lat: 47.2, Lon: 8.8},
			{Lat: 47.8, Lon: 8.5},
		},
		Properties: []classify.Property{{Key: "natural", Value: "water"}},
	})
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "world.map")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	store, err := mapfile.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	ws.SetStore(store)
	return ws
}

func sendRenderRequest(ws *Webserver, method, target string) *http.Response {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	ws.HandleRender(w, req)
	return w.Result()
}

func TestHandleRender(t *testing.T) {
	ws := makeTestWebserver(t, true)
	res := sendRenderRequest(ws, "GET",
		"/render?minlon=8&minlat=47&maxlon=9&maxlat=48&size=64")
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if got := res.Header.Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", got)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(res.Body); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("image is %dx%d, want 64x64", b.Dx(), b.Dy())
	}
}

func TestHandleRenderBadRequest(t *testing.T) {
	ws := makeTestWebserver(t, true)
	targets := []string{
		"/render",
		"/render?minlon=8&minlat=47&maxlon=9&maxlat=48",
		"/render?minlon=8&minlat=47&maxlon=9&maxlat=48&size=0",
		"/render?minlon=8&minlat=47&maxlon=9&maxlat=48&size=9999",
		"/render?minlon=8&minlat=47&maxlon=9&maxlat=48&size=abc",
		"/render?minlon=nine&minlat=47&maxlon=9&maxlat=48&size=64",
		"/render?minlon=9&minlat=47&maxlon=8&maxlat=48&size=64", // min >= max
	}
	for _, target := range targets {
		res := sendRenderRequest(ws, "GET", target)
		res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", target, res.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestHandleRenderNoStore(t *testing.T) {
	ws := makeTestWebserver(t, false)
	res := sendRenderRequest(ws, "GET",
		"/render?minlon=8&minlat=47&maxlon=9&maxlat=48&size=64")
	res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", res.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestHandleRenderMethodNotAllowed(t *testing.T) {
	ws := makeTestWebserver(t, true)
	res := sendRenderRequest(ws, "POST",
		"/render?minlon=8&minlat=47&maxlon=9&maxlat=48&size=64")
	res.Body.Close()
	if res.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", res.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestHandleHealth(t *testing.T) {
	ws := makeTestWebserver(t, true)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	ws.HandleHealth(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	empty := makeTestWebserver(t, false)
	w = httptest.NewRecorder()
	empty.HandleHealth(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status without store = %d, want 503", w.Code)
	}
}
