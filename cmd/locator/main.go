package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/rover/internal/api"
	"github.com/banshee-data/rover/internal/db"
	"github.com/banshee-data/rover/internal/feed"
	"github.com/banshee-data/rover/internal/httputil"
	"github.com/banshee-data/rover/internal/locator"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/serialmux"
	"github.com/banshee-data/rover/internal/telemetry"
	"github.com/banshee-data/rover/internal/timeutil"
	"github.com/banshee-data/rover/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run against a simulated sensor feed instead of the serial port")
	listen     = flag.String("listen", ":8080", "Listen address")
	port       = flag.String("port", "/dev/ttyACM0", "Serial port of the sensor board (ignored in dev mode, empty disables the feed)")
	baud       = flag.Int("baud", serialmux.DefaultBaudRate, "Serial baud rate")
	dbPath     = flag.String("db", "rover.db", "Path to the sqlite database")
	configPath = flag.String("config", "", "Path to a JSON tuning file")
	mqttBroker = flag.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (empty disables MQTT)")
	mqttTopic  = flag.String("mqtt-topic", "rover/locator/pose", "MQTT topic for pose reports")
	originLat  = flag.Float64("origin-lat", 0, "Latitude of the local frame origin")
	originLon  = flag.Float64("origin-lon", 0, "Longitude of the local frame origin")
	noImu      = flag.Bool("no-imu", false, "Run the odometry-only filter")
	history    = flag.Duration("history", 24*time.Hour, "How long to keep pose history (0 keeps everything)")
	showVer    = flag.Bool("version", false, "Print the build version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.Current())
		return
	}
	log.Printf("rover locator %s", version.Current())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("failed to load tuning: %v", err)
	}

	ref, err := buildReference(*originLat, *originLon, flagSet("origin-lat") || flagSet("origin-lon"))
	if err != nil {
		log.Fatalf("invalid origin: %v", err)
	}
	if ref == nil && *devMode {
		ref = devReference()
	}
	if ref == nil {
		log.Print("no origin given; GNSS fixes are dropped until one is set via /api/geo/reference")
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	wheels := sensors.NewWheels()
	gnss := sensors.NewGnss(ref, sensors.GpsQuality(tuning.GetMinGnssQuality()))
	var imu *sensors.Imu
	if !*noImu {
		imu = sensors.NewImu()
	}

	opts := []locator.Option{locator.WithOverrides(locator.Overrides{
		IgnoreOdometry: tuning.GetIgnoreOdometry(),
		IgnoreGnss:     tuning.GetIgnoreGnss(),
		IgnoreImu:      tuning.GetIgnoreImu(),
	})}
	if !*devMode {
		// The sensor board stamps samples with Unix time.
		opts = append(opts, locator.WithStartTime(float64(time.Now().UnixNano())/1e9))
	}
	loc := locator.New(locator.ParamsFromTuning(tuning), wheels, imu, gnss, opts...)
	defer loc.Close()

	if stored, err := store.LoadParams(); err != nil {
		log.Printf("failed to load stored params, using tuning: %v", err)
	} else if len(stored) > 0 {
		restoreParams(loc, stored)
		log.Printf("restored locator params from %s", *dbPath)
	}
	log.Printf("locator variant %s, params %+v", loc.Variant(), loc.Params())

	dispatcher := &feed.Dispatcher{Wheels: wheels, Imu: imu, Gnss: gnss}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sensorSerial serialmux.Mux
	if *devMode {
		pipe, w := serialmux.NewPipeSerialMux()
		sensorSerial = pipe
		sim := &feed.Simulator{
			Reference: ref,
			Speed:     0.5,
			TurnRate:  0.1,
			Interval:  100 * time.Millisecond,
			GnssEvery: 10,
			WithImu:   imu != nil,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer w.Close()
			if err := sim.Run(ctx, w, timeutil.RealClock{}); err != nil && err != context.Canceled {
				log.Printf("simulator stopped: %v", err)
			}
		}()
	} else if *port == "" {
		log.Print("no serial port given; the locator only serves its API")
		sensorSerial = serialmux.NewDisabledSerialMux()
	} else {
		hw, err := serialmux.NewRealSerialMux(*port, serialmux.PortOptions{BaudRate: *baud})
		if err != nil {
			log.Fatalf("failed to open sensor port: %v", err)
		}
		sensorSerial = hw
	}
	defer sensorSerial.Close()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sensorSerial.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := feed.Run(ctx, sensorSerial, dispatcher); err != nil && err != context.Canceled {
			log.Printf("feed stopped: %v", err)
		}
		log.Print("feed routine terminated")
	}()

	sinks := []telemetry.Sink{telemetry.NewStoreSink(store)}
	if *mqttBroker != "" {
		client, err := telemetry.DialMQTT(*mqttBroker, "rover-locator", 10*time.Second)
		if err != nil {
			log.Fatalf("failed to connect to MQTT broker: %v", err)
		}
		defer client.Disconnect(250)
		sinks = append(sinks, telemetry.NewMQTTSink(client, *mqttTopic))
		if err := telemetry.SubscribeOverrides(client, *mqttTopic+"/overrides/set", loc, 10*time.Second); err != nil {
			log.Printf("MQTT overrides disabled: %v", err)
		}
	}
	publisher := telemetry.NewPublisher(loc, timeutil.RealClock{}, tuning.GetTelemetryInterval(), sinks...)
	log.Printf("telemetry session %s every %s", publisher.Session(), tuning.GetTelemetryInterval())

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := publisher.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("telemetry stopped: %v", err)
		}
		log.Print("telemetry routine terminated")
	}()

	if *history > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pruneHistory(ctx, store, *history, timeutil.RealClock{})
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		srv := api.NewServer(loc,
			api.WithParamStore(store),
			api.WithPoseHistory(store),
			api.WithGnss(gnss),
			api.WithDispatcher(dispatcher),
		)
		mux := srv.ServeMux()
		srv.AttachDebugRoutes(mux)
		sensorSerial.AttachAdminRoutes(mux)
		store.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: httputil.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()

	if err := store.SaveParams(loc.Backup()); err != nil {
		log.Printf("failed to persist params on shutdown: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
