// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

import "time"

// Status is a registration's liveness value. Online and Offline drive the
// lifecycle (heartbeat promotes, the sweeper demotes); any other string is
// caller-supplied and opaque to the sweeper.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Registration is the last-announced reachability of one instance,
// unique per (mesh_id, instance_id).
type Registration struct {
	InstanceID string    `json:"instance_id" db:"instance_id"`
	MeshID     string    `json:"mesh_id" db:"mesh_id"`
	ExternalIP string    `json:"external_ip" db:"external_ip"`
	Port       uint16    `json:"port" db:"port"`
	Status     Status    `json:"status" db:"status"`
	LastSeen   time.Time `json:"last_seen" db:"last_seen"`
}

// RegisterRequest is the payload of POST /register (a heartbeat).
type RegisterRequest struct {
	InstanceID string  `json:"instance_id"`
	MeshID     string  `json:"mesh_id"`
	ExternalIP string  `json:"external_ip"`
	Port       uint16  `json:"port"`
	Status     *Status `json:"status,omitempty"`
}

type RegisterResponse struct {
	OK         bool   `json:"ok"`
	InstanceID string `json:"instance_id"`
	MeshID     string `json:"mesh_id"`
	Status     Status `json:"status"`
}

// NodeStatus is the public view of a registration in mesh listings.
type NodeStatus struct {
	InstanceID string    `json:"instance_id"`
	ExternalIP string    `json:"external_ip"`
	Port       uint16    `json:"port"`
	Status     Status    `json:"status"`
	LastSeen   time.Time `json:"last_seen"`
}

type MeshStatusResponse struct {
	MeshID string       `json:"mesh_id"`
	Nodes  []NodeStatus `json:"nodes"`
}

// NodeView converts a stored registration to its listing form.
func (r Registration) NodeView() NodeStatus {
	return NodeStatus{
		InstanceID: r.InstanceID,
		ExternalIP: r.ExternalIP,
		Port:       r.Port,
		Status:     r.Status,
		LastSeen:   r.LastSeen,
	}
}
