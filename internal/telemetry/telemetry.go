// Package telemetry records scenario edit activity to InfluxDB. Disabled by
// default; the engine works identically with the no-op recorder.
package telemetry

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"

	"github.com/sanderboers48/orbat-mapper/internal/config"
)

// Recorder receives edit telemetry from the scenario facade.
type Recorder interface {
	RecordCommit(label string, ops int, duration time.Duration)
	RecordHistory(op string, label string)
	Close()
}

// Nop discards all telemetry.
type Nop struct{}

func (Nop) RecordCommit(string, int, time.Duration) {}
func (Nop) RecordHistory(string, string)            {}
func (Nop) Close()                                  {}

// Influx writes edit telemetry as line-protocol points.
type Influx struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	log    zerolog.Logger
}

// New creates a recorder from configuration. When telemetry is disabled the
// no-op recorder is returned.
func New(cfg config.TelemetryConfig, log zerolog.Logger) Recorder {
	if !cfg.Enabled {
		return Nop{}
	}
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(500).SetFlushInterval(1000),
	)
	return &Influx{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		log:    log.With().Str("component", "telemetry").Logger(),
	}
}

func (i *Influx) RecordCommit(label string, ops int, duration time.Duration) {
	p := influxdb2.NewPointWithMeasurement("scenario_commit").
		AddTag("label", label).
		AddField("ops", ops).
		AddField("duration_ms", float64(duration.Microseconds())/1000.0).
		SetTime(time.Now())
	i.writer.WritePoint(p)
}

func (i *Influx) RecordHistory(op string, label string) {
	p := influxdb2.NewPointWithMeasurement("scenario_history").
		AddTag("op", op).
		AddTag("label", label).
		AddField("count", 1).
		SetTime(time.Now())
	i.writer.WritePoint(p)
}

func (i *Influx) Close() {
	i.writer.Flush()
	i.client.Close()
}
