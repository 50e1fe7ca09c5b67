// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMesh is the implicit isolation domain used when multi-tenancy is
// disabled or a request carries no mesh id.
const DefaultMesh = "default"

// Packet is one encrypted message held for later pickup.
// The relay never sees the plaintext; payload and nonce are opaque bytes.
type Packet struct {
	ID               uuid.UUID `json:"id" db:"id"`
	MeshID           string    `json:"mesh_id" db:"mesh_id"`
	TargetInstanceID string    `json:"target_instance_id" db:"target_instance_id"`
	SenderInstanceID string    `json:"sender_instance_id" db:"sender_instance_id"`
	PayloadCipher    []byte    `json:"payload_cipher" db:"payload_cipher"`
	Nonce            []byte    `json:"nonce" db:"nonce"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	TTL              time.Time `json:"ttl" db:"ttl"`
}

// PushRequest is the payload of POST /push. Byte fields travel as base64.
type PushRequest struct {
	MeshID           string  `json:"mesh_id"`
	TargetInstanceID string  `json:"target_instance_id"`
	SenderInstanceID string  `json:"sender_instance_id"`
	PayloadCipher    []byte  `json:"payload_cipher"`
	Nonce            []byte  `json:"nonce"`
	TTLSeconds       *uint64 `json:"ttl_seconds,omitempty"`
}

type PushResponse struct {
	OK       bool      `json:"ok"`
	PacketID uuid.UUID `json:"packet_id"`
}

type PullResponse struct {
	MeshID  string   `json:"mesh_id"`
	Packets []Packet `json:"packets"`
}
