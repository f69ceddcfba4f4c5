package telemetry

import (
	"time"

	"github.com/mission-control/mdc/internal/band"
	"github.com/mission-control/mdc/internal/fault"
	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/timing"
)

// Recorder bridges the engine to the monitoring surface: every observation
// lands on the SSE stream and in the Prometheus registry.
type Recorder struct {
	hub     *Hub
	metrics *Metrics
}

// Compile-time wiring checks against the engine's sink ports.
var (
	_ timing.SampleSink = (*Recorder)(nil)
	_ fault.Sink        = (*Recorder)(nil)
)

// NewRecorder couples a hub and a metric set.
func NewRecorder(hub *Hub, metrics *Metrics) *Recorder {
	return &Recorder{hub: hub, metrics: metrics}
}

// RecordSample receives one timing sample per executed command.
func (r *Recorder) RecordSample(s timing.Sample) {
	prio := s.Priority.String()
	r.metrics.DispatchLatency.WithLabelValues(prio).Observe(s.Elapsed.Seconds())
	if s.Violated {
		r.metrics.Violations.WithLabelValues(prio).Inc()
	}
	r.hub.Publish(Event{
		Type: "timingSample",
		Data: map[string]any{
			"messageId": s.MessageID,
			"command":   s.Command.String(),
			"priority":  prio,
			"elapsedUs": s.Elapsed.Microseconds(),
			"violated":  s.Violated,
		},
		At: s.At,
	})
}

// RecordFault receives fault and mode-change events from the fault manager.
func (r *Recorder) RecordFault(e fault.Event) {
	if e.Kind == fault.KindModeChange {
		r.metrics.SystemMode.Set(float64(e.Mode))
	}
	r.hub.Publish(Event{
		Type: string(e.Kind),
		Data: map[string]any{
			"id":     e.ID,
			"mode":   e.Mode.String(),
			"action": e.Action,
			"detail": e.Detail,
		},
		At: e.At,
	})
}

// RecordEnqueued notes an admitted message and the new queue depth.
func (r *Recorder) RecordEnqueued(m *message.Message, depth int) {
	r.metrics.Enqueued.WithLabelValues(m.Priority.String()).Inc()
	r.metrics.QueueDepth.Set(float64(depth))
}

// RecordDequeued notes a message drained for dispatch.
func (r *Recorder) RecordDequeued(m *message.Message, depth int) {
	r.metrics.Dequeued.WithLabelValues(m.Priority.String()).Inc()
	r.metrics.QueueDepth.Set(float64(depth))
}

// RecordEvicted surfaces a displaced message as a drop event.
func (r *Recorder) RecordEvicted(m *message.Message) {
	r.metrics.Evicted.WithLabelValues(m.Priority.String()).Inc()
	r.hub.Publish(Event{
		Type: "eviction",
		Data: map[string]any{
			"messageId": m.ID,
			"priority":  m.Priority.String(),
			"ageUs":     m.Age(time.Now()).Microseconds(),
		},
	})
}

// RecordRejected notes a message refused before enqueue.
func (r *Recorder) RecordRejected(reason string) {
	r.metrics.Rejected.WithLabelValues(reason).Inc()
}

// RecordExpired surfaces messages dropped by the TTL sweep.
func (r *Recorder) RecordExpired(dropped []*message.Message) {
	for _, m := range dropped {
		r.metrics.Rejected.WithLabelValues("expired").Inc()
		r.hub.Publish(Event{
			Type: "drop",
			Data: map[string]any{
				"messageId": m.ID,
				"priority":  m.Priority.String(),
				"reason":    "ttl",
			},
		})
	}
}

// RecordBandSwitch notes a completed switch onto b.
func (r *Recorder) RecordBandSwitch(b band.Band) {
	r.metrics.BandSwitches.WithLabelValues(b.String()).Inc()
	r.hub.Publish(Event{
		Type: "bandSwitch",
		Data: map[string]any{"band": b.String()},
	})
}

// SetQueueDepth refreshes the depth gauge from the housekeeping loop.
func (r *Recorder) SetQueueDepth(depth int) {
	r.metrics.QueueDepth.Set(float64(depth))
}
