// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/eckrelay/models"
)

func packet(mesh, target string, ttl time.Time) models.Packet {
	now := time.Now().UTC()
	return models.Packet{
		ID:               uuid.New(),
		MeshID:           mesh,
		TargetInstanceID: target,
		SenderInstanceID: "sender",
		PayloadCipher:    []byte("cipher"),
		Nonce:            []byte("nonce"),
		CreatedAt:        now,
		TTL:              ttl,
	}
}

func TestPullPackets(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	live := time.Now().Add(time.Hour)

	p1 := packet("m1", "d1", live)
	p2 := packet("m1", "d1", live)
	other := packet("m1", "d2", live)
	require.NoError(t, s.InsertPacket(ctx, p1))
	require.NoError(t, s.InsertPacket(ctx, p2))
	require.NoError(t, s.InsertPacket(ctx, other))

	pulled, err := s.PullPackets(ctx, "m1", "d1")
	require.NoError(t, err)
	require.Len(t, pulled, 2)

	// d2's packet is untouched
	pulled, err = s.PullPackets(ctx, "m1", "d2")
	require.NoError(t, err)
	assert.Len(t, pulled, 1)
	assert.Equal(t, other.ID, pulled[0].ID)
}

func TestPullSkipsExpiredButLeavesThemForExpiry(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	expired := packet("m1", "d1", time.Now().Add(-time.Second))
	require.NoError(t, s.InsertPacket(ctx, expired))

	pulled, err := s.PullPackets(ctx, "m1", "d1")
	require.NoError(t, err)
	assert.Empty(t, pulled)

	// Only the expiry path may remove it
	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeleteExpiredIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.InsertPacket(ctx, packet("m1", "d1", time.Now().Add(-time.Second))))
	require.NoError(t, s.InsertPacket(ctx, packet("m2", "d9", time.Now().Add(-time.Second))))
	require.NoError(t, s.InsertPacket(ctx, packet("m1", "d1", time.Now().Add(time.Hour))))

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// Packets pushed concurrently with concurrent pulls end up delivered to
// exactly one puller each.
func TestConcurrentPullsPartitionDisjointly(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	const total = 500

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			_ = s.InsertPacket(ctx, packet("m1", "d1", time.Now().Add(time.Hour)))
		}
	}()

	var mu sync.Mutex
	seen := make(map[uuid.UUID]int)
	var delivered int

	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				pulled, err := s.PullPackets(ctx, "m1", "d1")
				assert.NoError(t, err)

				mu.Lock()
				for _, pkt := range pulled {
					seen[pkt.ID]++
				}
				delivered += len(pulled)
				done := delivered >= total
				mu.Unlock()
				if done {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, total)
	for id, count := range seen {
		assert.Equalf(t, 1, count, "packet %s delivered %d times", id, count)
	}
}

func TestRegistrationRoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	r := models.Registration{
		InstanceID: "d1",
		MeshID:     "m1",
		ExternalIP: "203.0.113.9",
		Port:       9000,
		Status:     models.StatusOnline,
		LastSeen:   time.Now().UTC(),
	}
	require.NoError(t, s.UpsertRegistration(ctx, r))

	got, err := s.GetRegistration(ctx, "m1", "d1")
	require.NoError(t, err)
	assert.Equal(t, r.ExternalIP, got.ExternalIP)
	assert.Equal(t, r.Port, got.Port)
	assert.Equal(t, models.StatusOnline, got.Status)
}
