package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/greyline-dev/screenpilot/internal/runner"
	"github.com/greyline-dev/screenpilot/internal/tracking"
)

// RecordCycle writes one perception cycle sample.
//
// It satisfies tracking.Recorder; the write is non-blocking so the
// tracking loop never waits on telemetry.
func (c *Client) RecordCycle(sample tracking.CycleSample) {
	if !c.IsConnected() {
		return
	}

	found := 0
	for _, obs := range sample.Observations {
		if obs.Found {
			found++
		}
	}

	point := write.NewPoint(
		"perception_cycle",
		map[string]string{
			"agent_id": c.agentID,
		},
		map[string]interface{}{
			"frame":       int64(sample.Frame),
			"duration_ms": sample.Duration.Seconds() * millisecondsPerSecond,
			"templates":   len(sample.Observations),
			"found":       found,
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)

	for _, obs := range sample.Observations {
		sighting := write.NewPoint(
			"sighting",
			map[string]string{
				"agent_id": c.agentID,
				"template": obs.Name,
				"tier":     string(obs.Tier),
			},
			map[string]interface{}{
				"found": obs.Found,
				"score": obs.Score,
				"x":     obs.X,
				"y":     obs.Y,
			},
			time.Now(),
		)
		c.writeAPI.WritePoint(sighting)
	}
}

// WriteRunStats records the outcome of a completed policy run.
func (c *Client) WriteRunStats(policy string, stats runner.Stats) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"policy_run",
		map[string]string{
			"agent_id": c.agentID,
			"policy":   policy,
			"run_id":   stats.RunID,
		},
		map[string]interface{}{
			"frames":        int64(stats.Frames),
			"elapsed_ms":    stats.Elapsed.Milliseconds(),
			"fps":           stats.FPS,
			"policy_errors": int64(stats.PolicyErrors),
			"panics":        int64(stats.Panics),
		},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
