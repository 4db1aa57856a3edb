package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"mandiarb/internal/forecast"
	"mandiarb/internal/ingest"
	"mandiarb/internal/metrics"
	"mandiarb/internal/model"
	"mandiarb/internal/refresh"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Config holds CLI flags for the refresh daemon.
type Config struct {
	InputSource   string // csv|kafka|kafka-group|synthetic
	CSVPath       string
	LookbackDays  int
	SyntheticDays int

	ArtifactBackend string // fs|pebble|badger|memory
	ArtifactDir     string

	KafkaBootstrap string
	GroupID        string
	TopicRaw       string
	TopicManifest  string
	ManifestSink   string // file|kafka|both
	ManifestDir    string

	HTTPAddr string
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("refreshd failed: %v", err)
	}
}

func readFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.InputSource, "input-source", "synthetic", "raw record source: csv|kafka|kafka-group|synthetic")
	flag.StringVar(&cfg.CSVPath, "csv", "./data/market_prices.csv", "raw CSV path for csv input")
	flag.IntVar(&cfg.LookbackDays, "lookback", 90, "days of history to keep (0 = all)")
	flag.IntVar(&cfg.SyntheticDays, "synthetic-days", 60, "days of synthetic history")
	flag.StringVar(&cfg.ArtifactBackend, "artifact-backend", "fs", "model artifact store: fs|pebble|badger|memory")
	flag.StringVar(&cfg.ArtifactDir, "artifact-dir", "./models", "artifact store directory")
	flag.StringVar(&cfg.KafkaBootstrap, "kafka-bootstrap", "", "kafka bootstrap servers, e.g. localhost:9092")
	flag.StringVar(&cfg.GroupID, "group-id", "refreshd", "consumer group id for kafka-group input")
	flag.StringVar(&cfg.TopicRaw, "topic-raw", "mandi.raw-prices", "kafka topic for raw market records")
	flag.StringVar(&cfg.TopicManifest, "topic-manifest", "mandi.refresh-manifest", "kafka topic for refresh manifest (compacted)")
	flag.StringVar(&cfg.ManifestSink, "manifest-sink", "file", "manifest sink: file|kafka|both")
	flag.StringVar(&cfg.ManifestDir, "manifest-dir", "./models", "directory for the filesystem manifest")
	flag.StringVar(&cfg.HTTPAddr, "http", ":8080", "http listen for /metrics")
	flag.Parse()
	return cfg
}

func run(cfg Config) error {
	log.Printf("starting refreshd input=%s backend=%s lookback=%dd", cfg.InputSource, cfg.ArtifactBackend, cfg.LookbackDays)

	mreg := metrics.NewRegistry()
	go func() {
		http.Handle("/metrics", mreg.Handler())
		http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
		})
		_ = http.ListenAndServe(cfg.HTTPAddr, nil)
	}()

	records, dropped, err := loadRecords(cfg)
	if err != nil {
		return err
	}
	mreg.RecordsIngested.Add(float64(len(records)))
	mreg.RecordsDropped.Add(float64(dropped))
	if len(records) == 0 {
		return fmt.Errorf("no usable records from %s input", cfg.InputSource)
	}

	sum := ingest.Summarize(records)
	log.Printf("dataset: %d records, %s..%s, %d markets, %d crops",
		sum.TotalRecords, sum.StartDate.Format("2006-01-02"), sum.EndDate.Format("2006-01-02"), len(sum.Markets), len(sum.Crops))

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	f := forecast.NewForecaster(store)
	f.SetData(records)

	t0 := time.Now()
	outcomes, err := f.TrainAll(forecast.DefaultParams())
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	mreg.TrainLatencySec.Observe(time.Since(t0).Seconds())

	trained, skipped := 0, 0
	for _, o := range outcomes {
		if o.Status == forecast.StatusTrained {
			trained++
			continue
		}
		skipped++
		log.Printf("skipped %s/%s: %d observations", o.Market, o.Crop, o.Observations)
	}
	mreg.ModelsTrained.Add(float64(trained))
	mreg.ModelsSkipped.Add(float64(skipped))
	mreg.RefreshCycles.Inc()
	mreg.LastRefreshAgeSec.Set(0)
	log.Printf("training done in %s: %d trained, %d skipped", time.Since(t0).Round(time.Millisecond), trained, skipped)

	pub, err := manifestPublisher(cfg)
	if err != nil {
		return err
	}
	m := refresh.Manifest{
		DatasetID:    time.Now().UTC().Format("20060102T150405Z"),
		RecordCount:  len(records),
		ModelCount:   trained,
		SkippedPairs: skipped,
	}
	if err := pub.PublishLatest(m); err != nil {
		return fmt.Errorf("publish manifest: %w", err)
	}
	log.Printf("manifest published: dataset=%s models=%d", m.DatasetID, m.ModelCount)
	return nil
}

// loadRecords reads the raw source and normalizes it. Synthetic input skips
// normalization entirely: the generator emits normalized records. The second
// return is how many raw rows normalization dropped.
func loadRecords(cfg Config) ([]model.MarketPriceRecord, int, error) {
	icfg := ingest.DefaultConfig()
	if cfg.InputSource == "synthetic" {
		return ingest.GenerateSynthetic(time.Now().UTC(), cfg.SyntheticDays, icfg), 0, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var raw []ingest.RawRecord
	var err error
	switch cfg.InputSource {
	case "csv":
		raw, err = ingest.NewCSVSource(cfg.CSVPath).ReadAll(ctx)
	case "kafka":
		if cfg.KafkaBootstrap == "" {
			return nil, 0, fmt.Errorf("kafka input requires -kafka-bootstrap")
		}
		raw, err = ingest.NewKafkaSource(cfg.KafkaBootstrap, cfg.TopicRaw).ReadAll(ctx)
	case "kafka-group":
		if cfg.KafkaBootstrap == "" {
			return nil, 0, fmt.Errorf("kafka-group input requires -kafka-bootstrap")
		}
		raw, err = consumeGroup(cfg)
	default:
		return nil, 0, fmt.Errorf("unknown input source %q", cfg.InputSource)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read %s input: %w", cfg.InputSource, err)
	}

	records := ingest.Normalize(raw, icfg, cfg.LookbackDays)
	return records, len(raw) - len(records), nil
}

// consumeGroup drains the raw topic through a consumer group, committing
// offsets so repeated refresh cycles only see new rows.
func consumeGroup(cfg Config) ([]ingest.RawRecord, error) {
	c, err := ck.NewConsumer(&ck.ConfigMap{
		"bootstrap.servers":  cfg.KafkaBootstrap,
		"group.id":           cfg.GroupID,
		"enable.auto.commit": false,
		"auto.offset.reset":  "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("consumer: %w", err)
	}
	defer c.Close()
	if err := c.SubscribeTopics([]string{cfg.TopicRaw}, nil); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	var raw []ingest.RawRecord
	for {
		msg, err := c.ReadMessage(5 * time.Second)
		if err != nil {
			// Timeout means the topic is drained for this cycle.
			break
		}
		var r ingest.RawRecord
		if err := json.Unmarshal(msg.Value, &r); err != nil {
			// Malformed rows are dropped at the boundary.
			continue
		}
		raw = append(raw, r)
	}
	if len(raw) > 0 {
		if _, err := c.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
	}
	return raw, nil
}

func openStore(cfg Config) (forecast.ArtifactStore, func(), error) {
	noop := func() {}
	switch cfg.ArtifactBackend {
	case "fs":
		s, err := forecast.NewFSStore(cfg.ArtifactDir)
		if err != nil {
			return nil, noop, fmt.Errorf("init fs store: %w", err)
		}
		return s, noop, nil
	case "pebble":
		s, err := forecast.NewPebbleStore(cfg.ArtifactDir)
		if err != nil {
			return nil, noop, fmt.Errorf("init pebble store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "badger":
		s, err := forecast.NewBadgerStore(cfg.ArtifactDir)
		if err != nil {
			return nil, noop, fmt.Errorf("init badger store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	case "memory":
		return forecast.NewMemoryStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
}

func manifestPublisher(cfg Config) (refresh.Publisher, error) {
	fsPub := refresh.NewFilesystemManifest(cfg.ManifestDir)
	switch cfg.ManifestSink {
	case "", "file":
		return fsPub, nil
	case "kafka", "both":
		if cfg.KafkaBootstrap == "" {
			return nil, fmt.Errorf("kafka manifest sink requires -kafka-bootstrap")
		}
		kPub := refresh.NewKafkaManifest(cfg.KafkaBootstrap, cfg.TopicManifest, "mandi-manifest-latest")
		if cfg.ManifestSink == "kafka" {
			return kPub, nil
		}
		return refresh.MultiPublisher(fsPub, kPub), nil
	}
	return nil, fmt.Errorf("unknown manifest sink %q", cfg.ManifestSink)
}
