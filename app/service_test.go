package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeflow/chargeflow/config"
	"github.com/chargeflow/chargeflow/core/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Simulation.TickIntervalMS = 1
	svc, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestServiceSeedsRegistry(t *testing.T) {
	svc := newTestService(t)
	assert.Len(t, svc.Registry.List(), 5)
	assert.Len(t, svc.Registry.Vehicles(), 8)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestCompletionFreesEVSE(t *testing.T) {
	svc := newTestService(t)

	var evse model.EVSE
	for _, e := range svc.Registry.List() {
		if e.Status == model.StatusAvailable {
			evse = e
			break
		}
	}
	require.NotEmpty(t, evse.ID)

	_, err := svc.Machine.Reserve("EV-001", evse.ID)
	require.NoError(t, err)
	_, err = svc.Machine.Plug(evse.ID)
	require.NoError(t, err)
	_, err = svc.Machine.Start(evse.ID, 3)
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		e, err := svc.Registry.Get(evse.ID)
		require.NoError(t, err)
		if e.Status == model.StatusAvailable {
			v, err := svc.Registry.Vehicle("EV-001")
			require.NoError(t, err)
			assert.Equal(t, 90.0, v.CurrentSoC)
			assert.Empty(t, v.ConnectedEVSE)
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("EVSE never returned to Available")
}
