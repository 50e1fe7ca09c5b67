// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/storage"
)

func (s *Store) UpsertRegistration(ctx context.Context, r models.Registration) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registrations (instance_id, mesh_id, external_ip, port, status, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mesh_id, instance_id) DO UPDATE SET
			external_ip = EXCLUDED.external_ip,
			port = EXCLUDED.port,
			status = EXCLUDED.status,
			last_seen = EXCLUDED.last_seen`,
		r.InstanceID, r.MeshID, r.ExternalIP, int32(r.Port), string(r.Status), r.LastSeen)
	if err != nil {
		return fmt.Errorf("upsert registration: %w", err)
	}
	return nil
}

func (s *Store) ListRegistrations(ctx context.Context, meshID string) ([]models.Registration, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, mesh_id, external_ip, port, status, last_seen
		FROM registrations
		WHERE mesh_id = $1
		ORDER BY last_seen DESC`,
		meshID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		var r models.Registration
		var port int32
		if err := rows.Scan(&r.InstanceID, &r.MeshID, &r.ExternalIP, &port, &r.Status, &r.LastSeen); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		r.Port = uint16(port)
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read registrations: %w", err)
	}
	return regs, nil
}

func (s *Store) GetRegistration(ctx context.Context, meshID, instanceID string) (*models.Registration, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var r models.Registration
	var port int32
	err := s.db.QueryRowContext(ctx, `
		SELECT instance_id, mesh_id, external_ip, port, status, last_seen
		FROM registrations
		WHERE mesh_id = $1 AND instance_id = $2`,
		meshID, instanceID).Scan(&r.InstanceID, &r.MeshID, &r.ExternalIP, &port, &r.Status, &r.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	r.Port = uint16(port)
	return &r, nil
}

func (s *Store) DemoteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'offline'
		WHERE last_seen < $1
		  AND status = 'online'`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("demote stale: %w", err)
	}
	return result.RowsAffected()
}
