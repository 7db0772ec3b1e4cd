package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stapos/stapos/internal/store"
)

func TestWatcher_ProbeFlipsStateAndReconciles(t *testing.T) {
	r, fake, st := newRouter(t)
	ctx := context.Background()
	w := NewWatcher(r, 0, testLogger())

	fake.down = true
	w.probe(ctx)
	assert.False(t, r.Online())

	_, err := r.Insert(ctx, "expenses", store.Record{"description": "ice"})
	require.NoError(t, err)

	fake.down = false
	w.probe(ctx)
	assert.True(t, r.Online())

	pending, err := st.PendingOps(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Len(t, fake.inserted, 1)
}

func TestWatcher_NotifyTriggersProbe(t *testing.T) {
	r, fake, _ := newRouter(t)
	fake.down = true
	w := NewWatcher(r, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// The startup probe sees the remote down.
	assert.Eventually(t, func() bool { return !r.Online() }, time.Second, 5*time.Millisecond)

	fake.setDown(false)
	w.Notify()
	assert.Eventually(t, r.Online, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
