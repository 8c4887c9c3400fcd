package bridge_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xbridge-network/xbridge-daemon/pkg/bridge"
)

func TestDispatchRunsTasksOnWorkers(t *testing.T) {
	svc := bridge.NewService(bridge.Opts{
		NumWorkers:    2,
		TimerInterval: time.Hour,
	})

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	numTasks := 20
	var executed int32
	wg := &sync.WaitGroup{}
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		err := svc.Dispatch(func(_ context.Context) error {
			defer wg.Done()
			atomic.AddInt32(&executed, 1)
			return nil
		})
		require.NoError(t, err)
	}
	wg.Wait()

	svc.Stop()
	require.NoError(t, <-done)
	require.Equal(t, int32(numTasks), atomic.LoadInt32(&executed))
}

func TestDispatchAfterStop(t *testing.T) {
	svc := bridge.NewService(bridge.Opts{TimerInterval: time.Hour})

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	svc.Stop()
	require.NoError(t, <-done)

	err := svc.Dispatch(func(_ context.Context) error { return nil })
	require.EqualError(t, err, bridge.ErrBridgeStopped.Error())
}

func TestTimerLoopFiresPeriodically(t *testing.T) {
	var ticks int32
	svc := bridge.NewService(bridge.Opts{
		TimerInterval: 10 * time.Millisecond,
		OnTick: func(_ context.Context) {
			atomic.AddInt32(&ticks, 1)
		},
	})

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ticks) >= 3
	}, time.Second, 5*time.Millisecond)

	svc.Stop()
	require.NoError(t, <-done)
}

func TestTaskErrorsReachErrorHandler(t *testing.T) {
	errTask := errors.New("task failed")
	errChan := make(chan error, 1)
	svc := bridge.NewService(bridge.Opts{
		TimerInterval: time.Hour,
		ErrorHandler:  func(err error) { errChan <- err },
	})

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	err := svc.Dispatch(func(_ context.Context) error { return errTask })
	require.NoError(t, err)

	select {
	case err := <-errChan:
		require.EqualError(t, err, errTask.Error())
	case <-time.After(time.Second):
		t.Fatal("error handler was not invoked")
	}

	svc.Stop()
	require.NoError(t, <-done)
}

func TestContextCancellationStopsRuntime(t *testing.T) {
	svc := bridge.NewService(bridge.Opts{TimerInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runtime did not stop on context cancellation")
	}
}
