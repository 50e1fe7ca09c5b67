// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/xelth-com/eckrelay/models"
)

func (s *Store) InsertPacket(ctx context.Context, p models.Packet) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packets (id, mesh_id, target_instance_id, sender_instance_id,
			payload_cipher, nonce, created_at, ttl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.MeshID, p.TargetInstanceID, p.SenderInstanceID,
		p.PayloadCipher, p.Nonce, p.CreatedAt, p.TTL)
	if err != nil {
		return fmt.Errorf("insert packet: %w", err)
	}
	return nil
}

// PullPackets selects the non-expired packets for one target, then deletes
// exactly those rows, in a single transaction. Row locks taken by the
// select keep two concurrent pulls for the same target disjoint: the
// second pull blocks until the first commits and then sees nothing. A
// delete failure aborts the transaction so no packet is ever handed out
// while still stored.
func (s *Store) PullPackets(ctx context.Context, meshID, targetID string) ([]models.Packet, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin pull: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, mesh_id, target_instance_id, sender_instance_id,
			payload_cipher, nonce, created_at, ttl
		FROM packets
		WHERE mesh_id = $1
		  AND target_instance_id = $2
		  AND ttl > NOW()
		ORDER BY created_at ASC
		FOR UPDATE`,
		meshID, targetID)
	if err != nil {
		return nil, fmt.Errorf("select packets: %w", err)
	}

	var packets []models.Packet
	var ids []uuid.UUID
	for rows.Next() {
		var p models.Packet
		if err := rows.Scan(&p.ID, &p.MeshID, &p.TargetInstanceID, &p.SenderInstanceID,
			&p.PayloadCipher, &p.Nonce, &p.CreatedAt, &p.TTL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan packet: %w", err)
		}
		packets = append(packets, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read packets: %w", err)
	}
	rows.Close()

	if len(packets) == 0 {
		return nil, tx.Commit()
	}

	// Delete by id, not by re-running the filter: a packet inserted after
	// the select must stay put for the next pull.
	if _, err := tx.ExecContext(ctx, `DELETE FROM packets WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("delete pulled packets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pull: %w", err)
	}
	return packets, nil
}

func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM packets WHERE ttl < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return result.RowsAffected()
}
