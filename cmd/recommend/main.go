package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mandiarb/internal/engine"
	"mandiarb/internal/forecast"
	"mandiarb/internal/geo"
	"mandiarb/internal/ingest"
	"mandiarb/internal/model"
)

// Config holds CLI flags for the one-shot recommender.
type Config struct {
	Crop       string
	QuantityKg float64
	Location   string
	Lat        float64
	Lon        float64
	HasCoords  bool

	InputSource   string // csv|synthetic
	CSVPath       string
	LookbackDays  int
	SyntheticDays int
	ArtifactDir   string
	GeoTables     string
	Horizon       int
	Train         bool
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		if errors.Is(err, engine.ErrCropUnavailable) {
			log.Fatalf("no price data for crop %q", cfg.Crop)
		}
		log.Fatalf("recommend failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Crop, "crop", "Onion", "crop to sell")
	flag.Float64Var(&cfg.QuantityKg, "quantity", 1000, "quantity in kg")
	flag.StringVar(&cfg.Location, "location", "", "farmer location name (default: engine's reference hub)")
	flag.Float64Var(&cfg.Lat, "lat", 0, "farmer latitude (with -lon, overrides -location)")
	flag.Float64Var(&cfg.Lon, "lon", 0, "farmer longitude")
	flag.StringVar(&cfg.InputSource, "input-source", "synthetic", "price data source: csv|synthetic")
	flag.StringVar(&cfg.CSVPath, "csv", "./data/market_prices.csv", "raw CSV path for csv input")
	flag.IntVar(&cfg.LookbackDays, "lookback", 90, "days of history to keep (0 = all)")
	flag.IntVar(&cfg.SyntheticDays, "synthetic-days", 60, "days of synthetic history")
	flag.StringVar(&cfg.ArtifactDir, "artifact-dir", "./models", "model artifact directory")
	flag.StringVar(&cfg.GeoTables, "geo-tables", "", "distance tables JSON (default: built-in Gujarat tables)")
	flag.IntVar(&cfg.Horizon, "horizon", 7, "forecast horizon in days")
	flag.BoolVar(&cfg.Train, "train", false, "train models in-process instead of loading artifacts")
	flag.Parse()
	cfg.HasCoords = flagSet("lat") && flagSet("lon")
	return cfg
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

func run(cfg Config) error {
	icfg := ingest.DefaultConfig()
	var records []model.MarketPriceRecord
	switch cfg.InputSource {
	case "synthetic":
		records = ingest.GenerateSynthetic(time.Now().UTC(), cfg.SyntheticDays, icfg)
	case "csv":
		raw, err := ingest.NewCSVSource(cfg.CSVPath).ReadAll(context.Background())
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		records = ingest.Normalize(raw, icfg, cfg.LookbackDays)
	default:
		return fmt.Errorf("unknown input source %q", cfg.InputSource)
	}

	current := ingest.CurrentPrices(records, cfg.Crop)
	if len(current) == 0 {
		return fmt.Errorf("%s: %w", cfg.Crop, engine.ErrCropUnavailable)
	}

	store, err := forecast.NewFSStore(cfg.ArtifactDir)
	if err != nil {
		return fmt.Errorf("init artifact store: %w", err)
	}
	f := forecast.NewForecaster(store)
	f.SetData(records)
	if cfg.Train {
		if _, err := f.TrainAll(forecast.DefaultParams()); err != nil {
			return fmt.Errorf("train: %w", err)
		}
	}
	forecasts := f.ForecastAllMarkets(cfg.Crop, cfg.Horizon)

	tables := geo.GujaratTables()
	if cfg.GeoTables != "" {
		tables, err = geo.LoadTables(cfg.GeoTables)
		if err != nil {
			return fmt.Errorf("load geo tables: %w", err)
		}
	}
	e := engine.New(engine.DefaultCosts(), geo.NewResolver(tables))

	req := engine.Request{Crop: cfg.Crop, QuantityKg: cfg.QuantityKg}
	if cfg.HasCoords {
		req.Location = model.CoordLocation(cfg.Lat, cfg.Lon)
	} else if cfg.Location != "" {
		req.Location = model.NamedLocation(cfg.Location)
	}

	rec, err := e.Recommend(req, current, forecasts)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
