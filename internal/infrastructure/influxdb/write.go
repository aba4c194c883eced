package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// ReloadMeasurement is the measurement name for reload metrics.
const ReloadMeasurement = "mht_reload"

// ReloadMetric is one reload attempt as recorded in InfluxDB.
type ReloadMetric struct {
	Source     string
	OK         bool
	ErrorKind  string // "io", "syntax" or "semantic"; empty on success
	Duration   time.Duration
	Items      int
	Datapoints int
	At         time.Time
}

// reloadPoint maps a metric to a point. Source, outcome and error kind are
// tags (low cardinality); counts and duration are fields.
func reloadPoint(m ReloadMetric) *write.Point {
	tags := map[string]string{
		"source": m.Source,
		"ok":     boolTag(m.OK),
	}
	if m.ErrorKind != "" {
		tags["error_kind"] = m.ErrorKind
	}

	at := m.At
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(
		ReloadMeasurement,
		tags,
		map[string]interface{}{
			"duration_ms": float64(m.Duration.Microseconds()) / 1000,
			"items":       m.Items,
			"datapoints":  m.Datapoints,
		},
		at,
	)
}

func boolTag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// WriteReload queues a reload metric. The write is non-blocking; failures
// are delivered through SetOnError.
func (c *Client) WriteReload(m ReloadMetric) {
	if !c.isOpen() {
		return
	}
	c.writeAPI.WritePoint(reloadPoint(m))
}
