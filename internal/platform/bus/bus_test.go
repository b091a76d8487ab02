package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	b := New[int]()
	var got []int

	b.Subscribe(func(v int) { got = append(got, v*10) })
	b.Subscribe(func(v int) { got = append(got, v*100) })

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, []int{10, 100, 20, 200}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New[string]()
	n := 0
	sub := b.Subscribe(func(string) { n++ })

	b.Publish("a")
	b.Unsubscribe(sub)
	b.Publish("b")

	assert.Equal(t, 1, n)
}

func TestBus_PanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New[int]()
	delivered := false

	b.Subscribe(func(int) { panic("renderer bug") })
	b.Subscribe(func(int) { delivered = true })

	require.NotPanics(t, func() { b.Publish(7) })
	assert.True(t, delivered)
}

func TestBus_UnsubscribeDuringDispatch(t *testing.T) {
	b := New[int]()
	var sub Subscription
	calls := 0
	sub = b.Subscribe(func(int) {
		calls++
		b.Unsubscribe(sub)
	})

	require.NotPanics(t, func() {
		b.Publish(1)
		b.Publish(2)
	})
	assert.Equal(t, 1, calls)
}

func TestBus_NilSubscriberIgnored(t *testing.T) {
	b := New[int]()
	sub := b.Subscribe(nil)

	require.NotPanics(t, func() {
		b.Publish(1)
		b.Unsubscribe(sub)
	})
}
