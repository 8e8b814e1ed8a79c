package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/arcpp/proteome-backend/internal/app"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
)

func main() {
	var speciesID string
	flag.StringVar(&speciesID, "species", "", "species id to populate (default: all registered species)")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if application.Services.SummaryCache == nil {
		fmt.Println("REDIS_ADDR is not configured; nothing to populate")
		os.Exit(1)
	}

	targets := application.Services.Species.All()
	if speciesID != "" {
		sp, ok := application.Services.Species.Lookup(speciesID)
		if !ok {
			fmt.Printf("unknown species %q\n", speciesID)
			os.Exit(1)
		}
		targets = []species.Species{sp}
	}

	ctx := context.Background()
	for _, sp := range targets {
		res, err := application.Services.Populator.Run(ctx, sp, func(done int) {
			application.Log.Info("populate progress", "species", sp.ID, "proteins", done)
		})
		if err != nil {
			fmt.Printf("populate %s: %v\n", sp.ID, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d summaries, %d psm entries, %d failed, %dms\n",
			res.Species, res.Proteins, res.PSMEntries, res.Failed, res.DurationMs)
	}
}
