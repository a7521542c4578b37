package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(429, 20*time.Millisecond)
	c.Record(404, 20*time.Millisecond)
	c.Record(503, 30*time.Millisecond)
	c.ObserveEvent(false)
	c.ObserveEvent(true)
	c.ObserveUpload(2048)
	c.ObserveUpload(0)

	snap := c.Snapshot()
	assert.Equal(t, uint64(4), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(2), snap["clientErrorsTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.Equal(t, float64(20), snap["avgDurationMs"])
	assert.Equal(t, uint64(1), snap["uploadsTotal"])
	assert.Equal(t, uint64(2), snap["eventsPublished"])
	assert.Equal(t, uint64(1), snap["eventsDropped"])
	assert.Equal(t, uint64(2048), snap["uploadBytesTotal"])
}
