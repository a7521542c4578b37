package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversOncePerSubscriber(t *testing.T) {
	broker := NewBroker()
	a := broker.Subscribe(Filter{}, 4)
	b := broker.Subscribe(Filter{}, 4)
	defer a.Close()
	defer b.Close()

	broker.Publish(context.Background(), FormStatusUpdated{FormKey: "i9Form", Status: "submitted"})

	for _, sub := range []*Subscription{a, b} {
		event := <-sub.C()
		assert.Equal(t, "i9Form", event.FormKey)
		assert.False(t, event.At.IsZero())
		assert.Len(t, sub.C(), 0)
	}
}

func TestBrokerDoesNotReplay(t *testing.T) {
	broker := NewBroker()
	broker.Publish(context.Background(), FormStatusUpdated{FormKey: "w9Form"})

	late := broker.Subscribe(Filter{}, 4)
	defer late.Close()
	assert.Len(t, late.C(), 0)
}

func TestBrokerNeverBlocks(t *testing.T) {
	broker := NewBroker()
	slow := broker.Subscribe(Filter{}, 1)
	defer slow.Close()

	for i := 0; i < 5; i++ {
		broker.Publish(context.Background(), FormStatusUpdated{FormKey: "tbTest"})
	}
	assert.Len(t, slow.C(), 1)
	assert.Equal(t, int64(4), broker.Dropped())
}

func TestBrokerFilter(t *testing.T) {
	broker := NewBroker()
	mine := broker.Subscribe(Filter{TenantID: "t1", EmployeeID: "e1"}, 4)
	tenant := broker.Subscribe(Filter{TenantID: "t1"}, 4)
	defer mine.Close()
	defer tenant.Close()

	broker.Publish(context.Background(), FormStatusUpdated{TenantID: "t1", EmployeeID: "e2"})
	broker.Publish(context.Background(), FormStatusUpdated{TenantID: "t2", EmployeeID: "e1"})

	assert.Len(t, mine.C(), 0)
	assert.Len(t, tenant.C(), 1)
}

func TestSubscriptionClose(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe(Filter{}, 0)
	require.Equal(t, 1, broker.Subscribers())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, broker.Subscribers())

	_, open := <-sub.C()
	assert.False(t, open)

	broker.Publish(context.Background(), FormStatusUpdated{})
}

func TestRedisRelayIgnoresOwnMessages(t *testing.T) {
	broker := NewBroker()
	relay := &RedisRelay{local: broker, origin: "self"}
	sub := broker.Subscribe(Filter{}, 4)
	defer sub.Close()

	own, err := json.Marshal(envelope{Origin: "self", Event: FormStatusUpdated{FormKey: "i9Form"}})
	require.NoError(t, err)
	remote, err := json.Marshal(envelope{Origin: "other", Event: FormStatusUpdated{FormKey: "w9Form"}})
	require.NoError(t, err)

	relay.handle(context.Background(), string(own))
	relay.handle(context.Background(), "not json")
	relay.handle(context.Background(), string(remote))

	require.Len(t, sub.C(), 1)
	assert.Equal(t, "w9Form", (<-sub.C()).FormKey)
}
