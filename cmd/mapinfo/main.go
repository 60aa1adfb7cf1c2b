// SPDX-License-Identifier: MIT

// Tool for inspecting binary map files: prints the tile index with
// per-tile record counts and flags structurally broken tiles.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"rastermap/internal/mapfile"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: mapinfo <file.map>\n")
		os.Exit(2)
	}

	store, err := mapfile.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	tiles := store.Tiles()
	fmt.Printf("%s: version %d, %d tiles\n", flag.Arg(0), mapfile.SupportedVersion, store.TileCount())
	fmt.Printf("%10s %12s %10s %12s %10s %12s\n",
		"tile", "offset", "features", "coordinates", "strings", "characters")

	var features, coordinates int
	broken := 0
	for _, t := range tiles {
		note := ""
		if !t.Valid {
			note = "  BROKEN"
			broken++
		}
		fmt.Printf("%10d %12d %10d %12d %10d %12d%s\n",
			t.ID, t.Offset, t.Features, t.Coordinates, t.Strings, t.Characters, note)
		features += t.Features
		coordinates += t.Coordinates
	}
	fmt.Printf("total: %d features, %d coordinates\n", features, coordinates)
	if broken > 0 {
		log.Fatalf("%d of %d tiles are structurally broken", broken, len(tiles))
	}
}
