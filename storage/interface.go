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

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xelth-com/eckrelay/models"
)

// ErrNotFound is returned by point lookups when no row matches. It is a
// normal outcome, distinct from a storage fault.
var ErrNotFound = errors.New("storage: not found")

// MailboxStore persists packets until they are pulled or expire.
type MailboxStore interface {
	// InsertPacket durably stores one packet. The caller assigns id,
	// created_at and ttl before the insert.
	InsertPacket(ctx context.Context, p models.Packet) error

	// PullPackets atomically removes and returns every non-expired packet
	// addressed to (meshID, targetID), oldest first. A packet returned here
	// must never be returned again; a packet that cannot be deleted must
	// not be returned at all.
	PullPackets(ctx context.Context, meshID, targetID string) ([]models.Packet, error)

	// DeleteExpired removes every packet whose ttl has elapsed, across all
	// meshes, and reports how many rows went away.
	DeleteExpired(ctx context.Context) (int64, error)
}

// RegistryStore persists instance registrations keyed by (mesh, instance).
type RegistryStore interface {
	// UpsertRegistration creates or overwrites the registration for
	// (r.MeshID, r.InstanceID). Heartbeats are idempotent by construction.
	UpsertRegistration(ctx context.Context, r models.Registration) error

	// ListRegistrations returns every registration in a mesh, most
	// recently seen first. An unknown mesh yields an empty slice.
	ListRegistrations(ctx context.Context, meshID string) ([]models.Registration, error)

	// GetRegistration returns one registration or ErrNotFound.
	GetRegistration(ctx context.Context, meshID, instanceID string) (*models.Registration, error)

	// DemoteStale flips status online -> offline for every registration
	// whose last_seen is older than cutoff. Rows with any other status are
	// left alone.
	DemoteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// AccountStore reads rate-limit bookkeeping. Core logic never calls it;
// the gateway's API-key middleware does when enabled.
type AccountStore interface {
	GetAccount(ctx context.Context, apiKey string) (*models.Account, error)
}

type Store interface {
	MailboxStore
	RegistryStore
	AccountStore
}
