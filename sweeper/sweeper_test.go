// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingExpirer struct {
	calls atomic.Int64
	err   error
}

func (e *countingExpirer) Expire(ctx context.Context) (int64, error) {
	e.calls.Add(1)
	return 1, e.err
}

type countingDemoter struct {
	calls     atomic.Int64
	threshold time.Duration
	err       error
}

func (d *countingDemoter) DemoteStale(ctx context.Context, threshold time.Duration) (int64, error) {
	d.calls.Add(1)
	d.threshold = threshold
	return 1, d.err
}

func TestSweeperRunsBothSweeps(t *testing.T) {
	expirer := &countingExpirer{}
	demoter := &countingDemoter{}

	s := New(expirer, demoter, zap.NewNop(),
		WithExpireInterval(10*time.Millisecond),
		WithDemoteInterval(10*time.Millisecond),
		WithOfflineAfter(20*time.Minute))
	s.Start()

	require.Eventually(t, func() bool {
		return expirer.calls.Load() >= 2 && demoter.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.Equal(t, 20*time.Minute, demoter.threshold)
}

func TestFirstSweepRunsImmediately(t *testing.T) {
	expirer := &countingExpirer{}
	demoter := &countingDemoter{}

	// Long intervals: any call observed here came from the startup sweep
	s := New(expirer, demoter, zap.NewNop(),
		WithExpireInterval(time.Hour),
		WithDemoteInterval(time.Hour))
	s.Start()

	require.Eventually(t, func() bool {
		return expirer.calls.Load() == 1 && demoter.calls.Load() == 1
	}, time.Second, time.Millisecond)

	s.Stop()
}

func TestSweeperSurvivesFailures(t *testing.T) {
	expirer := &countingExpirer{err: assert.AnError}
	demoter := &countingDemoter{err: assert.AnError}

	s := New(expirer, demoter, zap.NewNop(),
		WithExpireInterval(10*time.Millisecond),
		WithDemoteInterval(10*time.Millisecond))
	s.Start()

	// Failures are logged; the loop keeps ticking
	require.Eventually(t, func() bool {
		return expirer.calls.Load() >= 3 && demoter.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestStopHaltsTicking(t *testing.T) {
	expirer := &countingExpirer{}
	demoter := &countingDemoter{}

	s := New(expirer, demoter, zap.NewNop(),
		WithExpireInterval(10*time.Millisecond),
		WithDemoteInterval(10*time.Millisecond))
	s.Start()

	require.Eventually(t, func() bool {
		return expirer.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	after := expirer.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, expirer.calls.Load())
}
