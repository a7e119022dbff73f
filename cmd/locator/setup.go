package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/paulmach/orb"

	"github.com/banshee-data/rover/internal/config"
	"github.com/banshee-data/rover/internal/geo"
	"github.com/banshee-data/rover/internal/locator"
	"github.com/banshee-data/rover/internal/timeutil"
)

// devOrigin anchors the simulated feed of -dev mode.
var devOrigin = orb.Point{7.4294, 51.9829}

func loadTuning(path string) (*config.LocatorTuning, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// buildReference returns nil when no origin was given.
func buildReference(lat, lon float64, given bool) (*geo.Reference, error) {
	if !given {
		return nil, nil
	}
	return geo.NewReference(orb.Point{lon, lat})
}

func devReference() *geo.Reference {
	ref, err := geo.NewReference(devOrigin)
	if err != nil {
		panic(err)
	}
	return ref
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// restoreParams overlays stored values on the locator's current parameters,
// so keys missing from the store keep their tuning-file value.
func restoreParams(loc *locator.Locator, stored map[string]any) {
	merged := loc.Backup()
	for k, v := range stored {
		merged[k] = v
	}
	loc.Restore(merged)
}

type pruner interface {
	PrunePoses(before time.Time) (int64, error)
}

// pruneHistory drops pose history older than keep once an hour until ctx is
// done.
func pruneHistory(ctx context.Context, store pruner, keep time.Duration, clock timeutil.Clock) {
	ticker := clock.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C():
			n, err := store.PrunePoses(now.Add(-keep))
			if err != nil {
				log.Printf("failed to prune pose history: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("pruned %d poses older than %s", n, keep)
			}
		}
	}
}
