// SPDX-License-Identifier: MIT

// Webserver that renders raster map images from a preprocessed
// binary map file. The map file is either given as a local path or
// fetched (and kept fresh) from S3-compatible object storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"rastermap/internal/mapfile"
	"rastermap/internal/render"
)

var (
	renderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rastermap_render_requests_total",
			Help: "Render requests served, by HTTP status.",
		},
		[]string{"status"},
	)
	renderLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rastermap_render_seconds",
			Help:    "Wall time of successful renders.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func main() {
	port := flag.Int("port", 0, "port for serving HTTP requests")
	mapPath := flag.String("map", "", "path to a local map file; overrides object storage")
	mapName := flag.String("mapname", "world", "base name of the map file in object storage")
	storagekey := flag.String("storage-key", "keys/storage-key", "path to key with storage access credentials")
	workdir := flag.String("workdir", "mapserver-workdir", "path to working directory on local disk")
	fontPath := flag.String("font", "", "path to a TTF font for place labels; empty disables labels")
	flag.Parse()

	if *port == 0 {
		*port, _ = strconv.Atoi(os.Getenv("PORT"))
	}

	prometheus.MustRegister(renderRequests, renderLatency)

	renderer, err := render.NewRenderer(*fontPath)
	if err != nil {
		log.Fatal(err)
	}
	server := &Webserver{renderer: renderer}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if *mapPath != "" {
		store, err := mapfile.Open(*mapPath)
		if err != nil {
			log.Fatal(err)
		}
		server.SetStore(store)
	} else {
		storage, err := NewStorage(*storagekey, *workdir)
		if err != nil {
			log.Fatal(err)
		}
		if err := storage.Reload(ctx); err != nil {
			log.Fatal(err)
		}
		if err := server.reopen(storage, *mapName); err != nil {
			log.Fatal(err)
		}
		g.Go(func() error {
			return server.watch(ctx, storage, *mapName)
		})
	}

	http.HandleFunc("/render", server.HandleRender)
	http.HandleFunc("/health", server.HandleHealth)
	http.HandleFunc("/robots.txt", server.HandleRobotsTxt)
	http.Handle("/metrics", promhttp.Handler())

	g.Go(func() error {
		log.Printf("Listening for HTTP requests on port %d", *port)
		return http.ListenAndServe(":"+strconv.Itoa(*port), nil)
	})
	log.Fatal(g.Wait())
}

type Webserver struct {
	renderer *render.Renderer

	mutex     sync.RWMutex
	store     *mapfile.Store
	storePath string
}

// SetStore swaps in a freshly opened store and closes the previous
// one. In-flight requests hold the old mapping through their own
// reference until the swap; Linux keeps the pages valid while the
// old descriptor's mapping is released only after Close.
func (ws *Webserver) SetStore(store *mapfile.Store) {
	ws.mutex.Lock()
	old := ws.store
	ws.store = store
	ws.mutex.Unlock()
	if old != nil {
		old.Close()
	}
}

func (ws *Webserver) currentStore() *mapfile.Store {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()
	return ws.store
}

// reopen opens the current local copy of the named map when it
// changed since the last call.
func (ws *Webserver) reopen(storage *Storage, name string) error {
	path, err := storage.MapPath(name + ".map")
	if err != nil {
		return err
	}
	ws.mutex.RLock()
	samePath := ws.storePath == path
	ws.mutex.RUnlock()
	if samePath {
		return nil
	}
	store, err := mapfile.Open(path)
	if err != nil {
		return err
	}
	ws.mutex.Lock()
	old := ws.store
	ws.store = store
	ws.storePath = path
	ws.mutex.Unlock()
	if old != nil {
		old.Close()
	}
	log.Printf("Serving map file %s", path)
	return nil
}

// watch periodically reloads object storage and swaps in new map
// versions as they appear.
func (ws *Webserver) watch(ctx context.Context, storage *Storage, name string) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := storage.Reload(ctx); err != nil {
				if err == ctx.Err() {
					return err
				}
				log.Println(err)
				continue
			}
			if err := ws.reopen(storage, name); err != nil {
				log.Println(err)
			}
		}
	}
}

// HandleRender serves GET /render?minlon=&minlat=&maxlon=&maxlat=&size=
// with a PNG of size x size pixels.
func (ws *Webserver) HandleRender(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		renderRequests.WithLabelValues("405").Inc()
		w.Header().Set("Allow", "GET")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q, err := parseRenderQuery(req)
	if err != nil {
		renderRequests.WithLabelValues("400").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	store := ws.currentStore()
	if store == nil {
		renderRequests.WithLabelValues("503").Inc()
		http.Error(w, "no map loaded", http.StatusServiceUnavailable)
		return
	}

	start := time.Now()
	png, err := ws.renderer.Render(req.Context(), store,
		q.minLon, q.minLat, q.maxLon, q.maxLat, q.size)
	if err != nil {
		renderRequests.WithLabelValues("500").Inc()
		log.Printf("render failed: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	renderLatency.Observe(time.Since(start).Seconds())
	renderRequests.WithLabelValues("200").Inc()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

type renderQuery struct {
	minLon, minLat, maxLon, maxLat float64
	size                           int
}

func parseRenderQuery(req *http.Request) (renderQuery, error) {
	var q renderQuery
	values := req.URL.Query()
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"minlon", &q.minLon},
		{"minlat", &q.minLat},
		{"maxlon", &q.maxLon},
		{"maxlat", &q.maxLat},
	} {
		raw := values.Get(p.name)
		if raw == "" {
			return q, fmt.Errorf("missing parameter %s", p.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, fmt.Errorf("bad parameter %s=%q", p.name, raw)
		}
		*p.dst = v
	}
	if q.minLon >= q.maxLon || q.minLat >= q.maxLat {
		return q, fmt.Errorf("empty bounding box")
	}

	raw := values.Get("size")
	if raw == "" {
		return q, fmt.Errorf("missing parameter size")
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 1 || size > 4096 {
		return q, fmt.Errorf("bad parameter size=%q, want 1..4096", raw)
	}
	q.size = size
	return q, nil
}

func (ws *Webserver) HandleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if ws.currentStore() == nil {
		http.Error(w, "no map loaded", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintln(w, "ok")
}

// HandleRobotsTxt allows crawlers to access the whole site; without
// it, some hosting proxies inject a deny-all response.
func (ws *Webserver) HandleRobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "%s", "User-Agent: *\nAllow: /\n")
}
