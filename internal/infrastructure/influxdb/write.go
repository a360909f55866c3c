package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePriceSample records the price decision for one quarter-hour period.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - period: Quarter-hour period number (1..96)
//   - priceEUR: Day-ahead price in EUR/MWh
//   - belowLimit: Whether the price was under the switching threshold
func (c *Client) WritePriceSample(period int, priceEUR float64, belowLimit bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"price",
		map[string]string{},
		map[string]interface{}{
			"period":      period,
			"eur_mwh":     priceEUR,
			"below_limit": belowLimit,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActuation records the outcome of one actuation invocation.
//
// Parameters:
//   - desired: The commanded state label ("on"/"off")
//   - succeeded: Whether a live echo confirmed the command
//   - attempts: Attempts consumed by the invocation
//   - trigger: What started the invocation (schedule, manual, night_guard)
func (c *Client) WriteActuation(desired string, succeeded bool, attempts int, trigger string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"actuation",
		map[string]string{
			"desired": desired,
			"trigger": trigger,
		},
		map[string]interface{}{
			"succeeded": succeeded,
			"attempts":  attempts,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
