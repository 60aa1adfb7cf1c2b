// SPDX-License-Identifier: MIT

// Tool for rendering one bounding box of a map file into a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"rastermap/internal/mapfile"
	"rastermap/internal/render"
)

func main() {
	mapPath := flag.String("map", "world.map", "path to the binary map file")
	bbox := flag.String("bbox", "", "bounding box as minLon,minLat,maxLon,maxLat")
	size := flag.Int("size", 1024, "output image edge length in pixels")
	fontPath := flag.String("font", "", "path to a TTF font for place labels")
	out := flag.String("out", "map.png", "path to output file being written")
	flag.Parse()

	minLon, minLat, maxLon, maxLat, err := parseBBox(*bbox)
	if err != nil {
		log.Fatal(err)
	}

	store, err := mapfile.Open(*mapPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	renderer, err := render.NewRenderer(*fontPath)
	if err != nil {
		log.Fatal(err)
	}

	png, err := renderer.Render(context.Background(), store,
		minLon, minLat, maxLon, maxLat, *size)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(*out, png, 0644); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s, %d bytes", *out, len(png))
}

func parseBBox(s string) (minLon, minLat, maxLon, maxLat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		err = fmt.Errorf("bbox %q: want minLon,minLat,maxLon,maxLat", s)
		return
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			err = fmt.Errorf("bbox %q: %w", s, err)
			return
		}
	}
	minLon, minLat, maxLon, maxLat = vals[0], vals[1], vals[2], vals[3]
	if minLon >= maxLon || minLat >= maxLat {
		err = fmt.Errorf("bbox %q is empty", s)
	}
	return
}
