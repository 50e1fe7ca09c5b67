// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package mailbox

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/storage/memory"
)

func newMailbox(t *testing.T, opts ...Option) *Mailbox {
	t.Helper()
	return New(memory.NewStore(), zap.NewNop(), opts...)
}

func pushReq(mesh, target, sender string, payload []byte) models.PushRequest {
	return models.PushRequest{
		MeshID:           mesh,
		TargetInstanceID: target,
		SenderInstanceID: sender,
		PayloadCipher:    payload,
		Nonce:            []byte("n"),
	}
}

func TestPushPullRoundTrip(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	id, err := m.Push(ctx, pushReq("m1", "dev2", "dev1", []byte("hi")))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, id, packets[0].ID)
	assert.Equal(t, []byte("hi"), packets[0].PayloadCipher)
	assert.Equal(t, "dev1", packets[0].SenderInstanceID)

	// A pulled packet is gone
	packets, err = m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	assert.Empty(t, packets)
}

func TestPushRejectsOversizedPayload(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	_, err := m.Push(ctx, pushReq("m1", "dev2", "dev1", make([]byte, MaxPayloadSize+1)))
	require.ErrorIs(t, err, ErrPayloadTooLarge)

	// Nothing was stored
	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	assert.Empty(t, packets)
}

func TestPushAcceptsExactMaxPayload(t *testing.T) {
	m := newMailbox(t)

	_, err := m.Push(context.Background(), pushReq("m1", "dev2", "dev1", make([]byte, MaxPayloadSize)))
	require.NoError(t, err)
}

func TestPullFIFOPerTarget(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	first, err := m.Push(ctx, pushReq("m1", "dev2", "dev1", []byte("p1")))
	require.NoError(t, err)
	second, err := m.Push(ctx, pushReq("m1", "dev2", "dev1", []byte("p2")))
	require.NoError(t, err)

	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.Equal(t, first, packets[0].ID)
	assert.Equal(t, second, packets[1].ID)
}

func TestDefaultTTLApplied(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	_, err := m.Push(ctx, pushReq("m1", "dev2", "dev1", []byte("x")))
	require.NoError(t, err)

	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, time.Hour, packets[0].TTL.Sub(packets[0].CreatedAt))
}

func TestHugeTTLClampedNotWrapped(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	ttl := uint64(math.MaxUint64)
	req := pushReq("m1", "dev2", "dev1", []byte("keep"))
	req.TTLSeconds = &ttl
	_, err := m.Push(ctx, req)
	require.NoError(t, err)

	// A wrapped duration would make the packet expire in the past
	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.True(t, packets[0].TTL.After(packets[0].CreatedAt))
}

func TestExpireRemovesStalePackets(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	ttl := uint64(0)
	req := pushReq("m1", "dev2", "dev1", []byte("stale"))
	req.TTLSeconds = &ttl
	_, err := m.Push(ctx, req)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	n, err := m.Expire(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	assert.Empty(t, packets)
}

func TestPullNeverReturnsExpired(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	ttl := uint64(0)
	req := pushReq("m1", "dev2", "dev1", []byte("stale"))
	req.TTLSeconds = &ttl
	_, err := m.Push(ctx, req)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	// No Expire ran, but the packet is already past its ttl
	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	assert.Empty(t, packets)
}

func TestMeshIsolation(t *testing.T) {
	m := newMailbox(t)
	ctx := context.Background()

	_, err := m.Push(ctx, pushReq("m1", "dev2", "dev1", []byte("for-m1")))
	require.NoError(t, err)

	// Same instance id, different mesh: invisible
	packets, err := m.Pull(ctx, "m2", "dev2")
	require.NoError(t, err)
	assert.Empty(t, packets)

	packets, err = m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	assert.Len(t, packets, 1)
}

func TestSingleMeshCollapse(t *testing.T) {
	m := newMailbox(t, WithSingleMesh())
	ctx := context.Background()

	_, err := m.Push(ctx, pushReq("anything", "dev2", "dev1", []byte("x")))
	require.NoError(t, err)

	packets, err := m.Pull(ctx, "", "dev2")
	require.NoError(t, err)
	assert.Len(t, packets, 1)
}

type recordingNotifier struct {
	calls int
	fail  error
}

func (n *recordingNotifier) PacketArrival(ctx context.Context, meshID, targetID, senderID string, packetID uuid.UUID) error {
	n.calls++
	return n.fail
}

func TestNotifierInvokedOnPush(t *testing.T) {
	notifier := &recordingNotifier{}
	m := newMailbox(t, WithNotifier(notifier))

	_, err := m.Push(context.Background(), pushReq("m1", "dev2", "dev1", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.calls)
}

func TestNotifierFailureDoesNotFailPush(t *testing.T) {
	notifier := &recordingNotifier{fail: assert.AnError}
	m := newMailbox(t, WithNotifier(notifier))
	ctx := context.Background()

	id, err := m.Push(ctx, pushReq("m1", "dev2", "dev1", []byte("x")))
	require.NoError(t, err)

	packets, err := m.Pull(ctx, "m1", "dev2")
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, id, packets[0].ID)
}
