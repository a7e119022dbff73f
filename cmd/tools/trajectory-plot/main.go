// Command trajectory-plot replays a recorded sensor feed through a fresh
// locator and renders the estimated path and the raw GNSS fixes to an image.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb"

	"github.com/banshee-data/rover/internal/config"
	"github.com/banshee-data/rover/internal/feed"
	"github.com/banshee-data/rover/internal/geo"
	"github.com/banshee-data/rover/internal/locator"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/trajectory"
)

var (
	input      = flag.String("in", "", "Recorded JSON-lines feed (required)")
	output     = flag.String("out", "trajectory.png", "Output image (.png, .svg or .pdf)")
	configPath = flag.String("config", "", "Optional JSON tuning file")
	originLat  = flag.Float64("origin-lat", 51.9829, "Latitude of the local frame origin")
	originLon  = flag.Float64("origin-lon", 7.4294, "Longitude of the local frame origin")
	noImu      = flag.Bool("no-imu", false, "Replay with the odometry-only filter")
	title      = flag.String("title", "", "Plot title (defaults to the input file name)")
)

func main() {
	flag.Parse()
	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*input, *output, *configPath, orb.Point{*originLon, *originLat}, !*noImu, *title); err != nil {
		log.Fatal(err)
	}
}

func run(in, out, configPath string, origin orb.Point, withImu bool, title string) error {
	tuning := config.DefaultTuningConfig()
	if configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(configPath); err != nil {
			return err
		}
	}

	ref, err := geo.NewReference(origin)
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}

	wheels := sensors.NewWheels()
	gnss := sensors.NewGnss(ref, sensors.GpsQuality(tuning.GetMinGnssQuality()))
	var imu *sensors.Imu
	if withImu {
		imu = sensors.NewImu()
	}

	loc := locator.New(locator.ParamsFromTuning(tuning), wheels, imu, gnss)
	defer loc.Close()
	collector := trajectory.NewCollector(loc, wheels, gnss)
	defer collector.Close()

	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	d := &feed.Dispatcher{Wheels: wheels, Imu: imu, Gnss: gnss}
	if err := feed.Replay(f, d); err != nil {
		return err
	}

	if title == "" {
		title = in
	}
	if err := collector.Save(out, title); err != nil {
		return err
	}

	snap := loc.Snapshot()
	log.Printf("replayed %+v", d.Counters())
	log.Printf("final pose x=%.3f y=%.3f yaw=%.1f° (%s), stats %+v",
		snap.Pose.X, snap.Pose.Y, snap.Pose.YawDeg(), snap.Variant, snap.Stats)
	log.Printf("wrote %s", out)
	return nil
}
