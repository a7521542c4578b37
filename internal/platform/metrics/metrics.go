package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps process-wide counters served as JSON on /metrics.
type Collector struct {
	requests        atomic.Uint64
	clientErrors    atomic.Uint64
	serverErrors    atomic.Uint64
	rateLimited     atomic.Uint64
	durationMs      atomic.Uint64
	eventsPublished atomic.Uint64
	eventsDropped   atomic.Uint64
	uploads         atomic.Uint64
	uploadBytes     atomic.Uint64
	started         time.Time
}

func New() *Collector {
	return &Collector{started: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	switch {
	case status == 429:
		c.rateLimited.Add(1)
		c.clientErrors.Add(1)
	case status >= 500:
		c.serverErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
	c.durationMs.Add(uint64(duration.Milliseconds()))
}

// ObserveEvent counts one form status delivery attempt.
func (c *Collector) ObserveEvent(dropped bool) {
	c.eventsPublished.Add(1)
	if dropped {
		c.eventsDropped.Add(1)
	}
}

func (c *Collector) ObserveUpload(size int64) {
	if size <= 0 {
		return
	}
	c.uploads.Add(1)
	c.uploadBytes.Add(uint64(size))
}

func (c *Collector) Snapshot() map[string]any {
	total := c.requests.Load()
	totalMs := c.durationMs.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":     total,
		"clientErrorsTotal": c.clientErrors.Load(),
		"errorsTotal":       c.serverErrors.Load(),
		"rateLimitedTotal":  c.rateLimited.Load(),
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"eventsPublished":   c.eventsPublished.Load(),
		"eventsDropped":     c.eventsDropped.Load(),
		"uploadsTotal":      c.uploads.Load(),
		"uploadBytesTotal":  c.uploadBytes.Load(),
		"uptimeSeconds":     int64(time.Since(c.started).Seconds()),
	}
}
