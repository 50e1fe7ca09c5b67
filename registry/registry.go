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

package registry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/storage"
)

// DefaultOfflineAfter is the staleness threshold for demotion: a node that
// has not heartbeat for this long is marked offline by the sweeper.
const DefaultOfflineAfter = 20 * time.Minute

// Registry owns device presence: heartbeat upserts, status queries and
// demotion of stale entries. Registrations are never deleted.
type Registry struct {
	store      storage.RegistryStore
	log        *zap.Logger
	singleMesh bool
}

type Option func(*Registry)

// WithSingleMesh collapses every mesh id to the implicit default mesh.
func WithSingleMesh() Option {
	return func(r *Registry) { r.singleMesh = true }
}

func New(store storage.RegistryStore, log *zap.Logger, opts ...Option) *Registry {
	r := &Registry{store: store, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (g *Registry) meshKey(meshID string) string {
	if g.singleMesh || meshID == "" {
		return models.DefaultMesh
	}
	return meshID
}

// Heartbeat upserts the registration for (mesh, instance), refreshing
// last_seen and setting status online unless the caller supplied one.
// Repeated identical heartbeats are no-ops beyond the timestamp refresh.
func (g *Registry) Heartbeat(ctx context.Context, req models.RegisterRequest) (models.Status, error) {
	status := models.StatusOnline
	if req.Status != nil {
		status = *req.Status
	}

	r := models.Registration{
		InstanceID: req.InstanceID,
		MeshID:     g.meshKey(req.MeshID),
		ExternalIP: req.ExternalIP,
		Port:       req.Port,
		Status:     status,
		LastSeen:   time.Now().UTC(),
	}
	if err := g.store.UpsertRegistration(ctx, r); err != nil {
		return "", err
	}

	g.log.Info("heartbeat",
		zap.String("instance", r.InstanceID),
		zap.String("mesh_id", r.MeshID),
		zap.String("addr", r.ExternalIP),
		zap.Uint16("port", r.Port),
		zap.String("status", string(r.Status)))
	return status, nil
}

// Query lists every registration in a mesh, most recently seen first. An
// empty mesh is an empty list, not an error.
func (g *Registry) Query(ctx context.Context, meshID string) ([]models.Registration, error) {
	return g.store.ListRegistrations(ctx, g.meshKey(meshID))
}

// Resolve returns one registration or storage.ErrNotFound. Absence is a
// normal outcome, not a fault.
func (g *Registry) Resolve(ctx context.Context, meshID, instanceID string) (*models.Registration, error) {
	return g.store.GetRegistration(ctx, g.meshKey(meshID), instanceID)
}

// DemoteStale marks offline every online registration whose last heartbeat
// is older than threshold. It only ever transitions online -> offline;
// already-offline rows and caller-supplied statuses are untouched.
func (g *Registry) DemoteStale(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	return g.store.DemoteStale(ctx, cutoff)
}
