package events

import (
	"context"
	"time"

	"github.com/areduca/classbuilder/internal/influx"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

const activityMeasurement = "class_activity"

// InfluxRecorder writes one class_activity point per event.
type InfluxRecorder struct {
	manager *influx.Manager
}

// NewInfluxRecorder records through a connected manager.
func NewInfluxRecorder(m *influx.Manager) *InfluxRecorder {
	return &InfluxRecorder{manager: m}
}

// Point converts e to its line-protocol point.
func Point(e Event) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		activityMeasurement,
		map[string]string{
			"kind":  string(e.Kind),
			"owner": e.OwnerID,
		},
		map[string]any{
			"classId":  e.ClassID,
			"markers":  e.Markers,
			"steps":    e.Steps,
			"contents": e.Contents,
		},
		time.UnixMilli(e.At),
	)
}

// Publish writes e.
func (r *InfluxRecorder) Publish(ctx context.Context, e Event) error {
	return r.manager.WritePoint(ctx, Point(e))
}

// Close flushes and closes the manager.
func (r *InfluxRecorder) Close() error {
	return r.manager.Close()
}
