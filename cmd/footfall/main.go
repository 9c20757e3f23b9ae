package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LdDl/footfall/internal/app"
	"github.com/LdDl/footfall/internal/capture"
	"github.com/LdDl/footfall/internal/config"
	"github.com/LdDl/footfall/internal/detector"
	"github.com/LdDl/footfall/internal/log"
	"github.com/LdDl/footfall/internal/report"
	"github.com/LdDl/footfall/internal/store"
	"github.com/LdDl/footfall/mot"
)

const version = "0.1.0"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	command := "run"
	args := flag.Args()
	if flag.NArg() > 0 {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	switch command {
	case "run":
		handleRun(args)
	case "report":
		handleReport(args)
	case "record":
		handleRecord(args)
	case "migrate":
		handleMigrate(args)
	case "version":
		fmt.Printf("footfall version %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`footfall - people counting at store entrances

Usage: footfall <command> [options]

Commands:
  run        Count entries and exits of every configured zone (default)
  report     Render HTML report of hourly footfall
  record     Save detections of a zone's video as a replay file
  migrate    Apply (or with --down roll back) database migrations
  version    Show footfall version
  help       Show this help message

Common Flags:
  --config <file>      Configuration file path (default: footfall.json)

Examples:
  footfall run --config footfall.json
  footfall report --config footfall.json --out report.html
  footfall record --config footfall.json --zone main_entrance --out entrance.jsonl
  footfall migrate --config footfall.json --down`)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)
	return cfg
}

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Configuration file path")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := log.With("component", "footfall")

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	sinks := app.MultiSink{st.Events(), app.LogSink{Logger: logger}}
	if cfg.CSVPath != "" {
		csvSink, err := store.NewCSVSink(cfg.CSVPath)
		if err != nil {
			logger.Error("failed to open csv file", "path", cfg.CSVPath, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, csvSink)
	}

	deployment, err := app.Build(cfg, sinks, mot.SystemClock{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := deployment.Runner.Run(ctx)
	if err := deployment.Close(); err != nil {
		logger.Warn("failed to release resources", "error", err)
	}
	if runErr != nil {
		logger.Error("counting failed", "error", runErr)
		os.Exit(1)
	}
	for _, p := range deployment.Runner.Pipelines() {
		logger.Info("zone finished", "zone", p.Label(), "frames", p.Frames(), "events", p.Events())
	}
}

func handleReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Configuration file path")
	out := fs.String("out", "", "Output HTML file (default: report_path from config)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	path := cfg.ReportPath
	if *out != "" {
		path = *out
	}

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	file, err := os.Create(path)
	if err != nil {
		log.Error("failed to create report file", "path", path, "error", err)
		os.Exit(1)
	}
	defer file.Close()

	if err := report.Render(context.Background(), st.Events(), file); err != nil {
		log.Error("failed to render report", "error", err)
		os.Exit(1)
	}
	log.Info("report written", "path", path)
}

func handleRecord(args []string) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Configuration file path")
	zoneLabel := fs.String("zone", "", "Label of the zone to record (default: first zone)")
	out := fs.String("out", "", "Output replay file (required)")
	fs.Parse(args)

	if *out == "" {
		fmt.Fprintln(os.Stderr, "Error: --out is required")
		os.Exit(1)
	}
	cfg := loadConfig(*configPath)

	var zone *config.Zone
	for i := range cfg.Zones {
		if *zoneLabel == "" || cfg.Zones[i].Label == *zoneLabel {
			zone = &cfg.Zones[i]
			break
		}
	}
	if zone == nil || zone.Source == "" {
		log.Error("zone with a video source not found", "zone", *zoneLabel)
		os.Exit(1)
	}

	var source capture.Source
	if device, ok := zone.Device(); ok {
		source = capture.NewDevice(device)
	} else {
		source = capture.NewFile(zone.Source)
	}

	yolo, err := detector.NewYOLO(app.DetectorConfig(cfg.Detector))
	if err != nil {
		log.Error("failed to load detector", "error", err)
		os.Exit(1)
	}
	defer yolo.Close()

	file, err := os.Create(*out)
	if err != nil {
		log.Error("failed to create replay file", "path", *out, "error", err)
		os.Exit(1)
	}
	defer file.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.With("zone", zone.Label)
	frames, err := app.Record(ctx, source, yolo, detector.NewReplayWriter(file), logger)
	if err != nil {
		logger.Error("recording failed", "frames", frames, "error", err)
		os.Exit(1)
	}
	logger.Info("replay written", "path", *out, "frames", frames)
}

func handleMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Configuration file path")
	down := fs.Bool("down", false, "Roll back every migration (drops stored events)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *down {
		if err := st.MigrateDown(); err != nil {
			log.Error("failed to roll back migrations", "error", err)
			os.Exit(1)
		}
	}
	version, dirty, err := st.MigrateVersion()
	if err != nil {
		log.Error("failed to read migration version", "error", err)
		os.Exit(1)
	}
	log.Info("database ready", "path", st.Path(), "version", version, "dirty", dirty)
}
