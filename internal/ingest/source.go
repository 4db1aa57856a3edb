package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Source supplies raw records for a refresh cycle.
type Source interface {
	ReadAll(ctx context.Context) ([]RawRecord, error)
}

// CSVSource reads raw records from an AGMARKNET-style CSV export.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// ReadAll parses the file, tolerating header case variants and the
// URL-encoded "_x0020_" artifacts real exports carry. A missing file is the
// one fatal configuration error of the pipeline.
func (s *CSVSource) ReadAll(ctx context.Context) ([]RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open raw source: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[canonicalField(h)] = i
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []RawRecord
	for {
		row, err := r.Read()
		if err != nil {
			break
		}
		out = append(out, RawRecord{
			ArrivalDate: field(row, "arrival_date"),
			State:       field(row, "state"),
			District:    field(row, "district"),
			Market:      field(row, "market"),
			Commodity:   field(row, "commodity"),
			Variety:     field(row, "variety"),
			ModalPrice:  field(row, "modal_price"),
		})
	}
	return out, nil
}

// canonicalField normalizes a raw column name: lower-case, decode the
// "_x0020_" artifact, and collapse naming variants across dataset vintages.
func canonicalField(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "_x0020_", "_")
	n = strings.ReplaceAll(n, " ", "_")
	switch n {
	case "date":
		return "arrival_date"
	case "mandi":
		return "market"
	case "crop":
		return "commodity"
	case "price":
		return "modal_price"
	}
	return n
}

// KafkaSource drains JSON raw records from a topic partition. It reads until
// no message arrives within the timeout, which suits the bounded refresh
// topics this pipeline consumes.
type KafkaSource struct {
	brokers []string
	topic   string
	timeout time.Duration
}

// NewKafkaSource creates a source. bootstrap can be comma-separated brokers.
func NewKafkaSource(bootstrap string, topic string) *KafkaSource {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}
	return &KafkaSource{brokers: brokers, topic: topic, timeout: 10 * time.Second}
}

func (s *KafkaSource) ReadAll(ctx context.Context) ([]RawRecord, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   s.brokers,
		Topic:     s.topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer r.Close()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []RawRecord
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return nil, fmt.Errorf("read kafka: %w", err)
		}
		var rec RawRecord
		if err := json.Unmarshal(m.Value, &rec); err != nil {
			// Malformed rows are a data-quality problem, not a transport
			// failure; drop and continue.
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
