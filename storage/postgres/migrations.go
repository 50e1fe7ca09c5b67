// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package postgres

func (s *Store) Migrate() error {
	migrations := []string{
		// Packets held until pulled or expired
		`CREATE TABLE IF NOT EXISTS packets (
			id UUID PRIMARY KEY,
			mesh_id TEXT NOT NULL,
			target_instance_id TEXT NOT NULL,
			sender_instance_id TEXT NOT NULL,
			payload_cipher BYTEA NOT NULL,
			nonce BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ttl TIMESTAMPTZ NOT NULL
		)`,

		// Pulls filter by mesh first, then target
		`CREATE INDEX IF NOT EXISTS idx_packets_mesh ON packets(mesh_id)`,

		`CREATE INDEX IF NOT EXISTS idx_packets_target ON packets(target_instance_id)`,

		// Expiry sweep scans by ttl
		`CREATE INDEX IF NOT EXISTS idx_packets_ttl ON packets(ttl)`,

		// One registration per (mesh, instance)
		`CREATE TABLE IF NOT EXISTS registrations (
			instance_id TEXT NOT NULL,
			mesh_id TEXT NOT NULL,
			external_ip TEXT NOT NULL,
			port INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'online',
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (mesh_id, instance_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_registrations_mesh ON registrations(mesh_id)`,

		// Demotion sweep scans by last_seen
		`CREATE INDEX IF NOT EXISTS idx_registrations_last_seen ON registrations(last_seen)`,

		// Rate-limit bookkeeping, consulted by the gateway only
		`CREATE TABLE IF NOT EXISTS accounts (
			api_key TEXT PRIMARY KEY,
			plan TEXT NOT NULL DEFAULT 'free',
			allowance INTEGER NOT NULL DEFAULT 100
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
