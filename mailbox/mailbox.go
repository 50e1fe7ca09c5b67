// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package mailbox

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/storage"
)

// MaxPayloadSize bounds payload_cipher at 1 MiB. Oversized payloads are
// rejected before any storage access.
const MaxPayloadSize = 1 << 20

// DefaultTTL is the packet lifetime applied when a push names none.
const DefaultTTL = time.Hour

// maxTTLSeconds is the largest lifetime representable as a time.Duration.
// Anything above wraps int64 nanoseconds into a negative duration and a
// packet born expired; requested lifetimes are clamped here.
const maxTTLSeconds = uint64(math.MaxInt64 / int64(time.Second))

// ErrPayloadTooLarge rejects a push whose ciphertext exceeds MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("mailbox: payload exceeds 1 MiB")

// ArrivalNotifier announces stored packets to whoever is listening for the
// target. Failures are logged and never fail the push.
type ArrivalNotifier interface {
	PacketArrival(ctx context.Context, meshID, targetID, senderID string, packetID uuid.UUID) error
}

// Mailbox owns the packet lifecycle: accept, retain with ttl, atomic
// pull-and-remove, expire. It is content-blind; payload and nonce pass
// through untouched.
type Mailbox struct {
	store      storage.MailboxStore
	notifier   ArrivalNotifier
	log        *zap.Logger
	defaultTTL time.Duration
	singleMesh bool
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithNotifier wires an arrival notifier. Without one, pushes are silent.
func WithNotifier(n ArrivalNotifier) Option {
	return func(m *Mailbox) { m.notifier = n }
}

// WithDefaultTTL overrides the packet lifetime used when a push names none.
func WithDefaultTTL(d time.Duration) Option {
	return func(m *Mailbox) { m.defaultTTL = d }
}

// WithSingleMesh collapses every mesh id to the implicit default mesh.
func WithSingleMesh() Option {
	return func(m *Mailbox) { m.singleMesh = true }
}

func New(store storage.MailboxStore, log *zap.Logger, opts ...Option) *Mailbox {
	m := &Mailbox{
		store:      store,
		log:        log,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mailbox) meshKey(meshID string) string {
	if m.singleMesh || meshID == "" {
		return models.DefaultMesh
	}
	return meshID
}

// Push stores one packet and returns its server-assigned id. "Accepted" is
// the only acknowledgment a sender ever gets; delivery is not confirmed.
func (m *Mailbox) Push(ctx context.Context, req models.PushRequest) (uuid.UUID, error) {
	if len(req.PayloadCipher) > MaxPayloadSize {
		return uuid.Nil, ErrPayloadTooLarge
	}

	ttl := m.defaultTTL
	if req.TTLSeconds != nil {
		secs := *req.TTLSeconds
		if secs > maxTTLSeconds {
			secs = maxTTLSeconds
		}
		ttl = time.Duration(secs) * time.Second
	}

	now := time.Now().UTC()
	p := models.Packet{
		ID:               uuid.New(),
		MeshID:           m.meshKey(req.MeshID),
		TargetInstanceID: req.TargetInstanceID,
		SenderInstanceID: req.SenderInstanceID,
		PayloadCipher:    req.PayloadCipher,
		Nonce:            req.Nonce,
		CreatedAt:        now,
		TTL:              now.Add(ttl),
	}

	if err := m.store.InsertPacket(ctx, p); err != nil {
		return uuid.Nil, err
	}

	m.log.Info("packet stored",
		zap.String("packet_id", p.ID.String()),
		zap.String("mesh_id", p.MeshID),
		zap.String("sender", p.SenderInstanceID),
		zap.String("target", p.TargetInstanceID),
		zap.Duration("ttl", ttl))

	if m.notifier != nil {
		if err := m.notifier.PacketArrival(ctx, p.MeshID, p.TargetInstanceID, p.SenderInstanceID, p.ID); err != nil {
			m.log.Warn("arrival notify failed", zap.Error(err))
		}
	}

	return p.ID, nil
}

// Pull removes and returns every pending packet for the target, oldest
// first. A returned packet is gone from the store; a second pull sees
// nothing until something new arrives.
func (m *Mailbox) Pull(ctx context.Context, meshID, targetID string) ([]models.Packet, error) {
	packets, err := m.store.PullPackets(ctx, m.meshKey(meshID), targetID)
	if err != nil {
		return nil, err
	}

	m.log.Info("packets pulled",
		zap.String("mesh_id", m.meshKey(meshID)),
		zap.String("target", targetID),
		zap.Int("count", len(packets)))
	return packets, nil
}

// Expire removes every packet past its ttl, across all meshes. Invoked by
// the sweeper; idempotent.
func (m *Mailbox) Expire(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}
