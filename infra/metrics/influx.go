package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/chargeflow/chargeflow/core/metrics"
	"github.com/chargeflow/chargeflow/infra/logger"
)

// InfluxConfig holds connection parameters for the time-series sink.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// InfluxSink writes session samples and transitions to InfluxDB using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing database never blocks
// the coordinator.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordTransition writes the transition as a point.
func (s *InfluxSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("evse_transition").
		AddTag("evse_id", ev.EVSEID).
		AddTag("operation", ev.Operation).
		AddTag("accepted", strconv.FormatBool(ev.Accepted)).
		AddField("from", string(ev.From)).
		AddField("to", string(ev.To)).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSessionStart writes a session start marker.
func (s *InfluxSink) RecordSessionStart(ev coremetrics.SessionStartEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("charging_session").
		AddTag("evse_id", ev.EVSEID).
		AddTag("ev_id", ev.EVID).
		AddTag("event", "start").
		AddField("total_sec", ev.TotalSec).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSessionTick writes the per-tick state-of-charge sample.
func (s *InfluxSink) RecordSessionTick(ev coremetrics.SessionTickEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("soc_sample").
		AddTag("evse_id", ev.EVSEID).
		AddTag("ev_id", ev.EVID).
		AddField("progress_sec", ev.ProgressSec).
		AddField("total_sec", ev.TotalSec).
		AddField("soc", ev.SoC).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSessionEnd writes a session end marker.
func (s *InfluxSink) RecordSessionEnd(ev coremetrics.SessionEndEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("charging_session").
		AddTag("evse_id", ev.EVSEID).
		AddTag("ev_id", ev.EVID).
		AddTag("event", "end").
		AddTag("completed", strconv.FormatBool(ev.Completed)).
		AddField("duration_sec", ev.Duration.Seconds()).
		AddField("final_soc", ev.FinalSoC).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSoCPushFailure writes a failure marker.
func (s *InfluxSink) RecordSoCPushFailure(evID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("soc_push_failure").
		AddTag("ev_id", evID).
		AddField("count", 1).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}
