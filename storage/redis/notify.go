// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel prefix: mesh:notify:{meshId}:{instanceId}
const notifyPrefix = "mesh:notify:"

// Notifier publishes packet-arrival events so connected devices can wake
// up instead of polling. Content-blind: only the packet id and sender
// travel over the channel, never payload bytes.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PacketArrival announces that a packet is waiting for (meshID, targetID).
func (n *Notifier) PacketArrival(ctx context.Context, meshID, targetID, senderID string, packetID uuid.UUID) error {
	event := map[string]string{
		"type":      "packet",
		"packet_id": packetID.String(),
		"sender_id": senderID,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal arrival event: %w", err)
	}

	channel := notifyPrefix + meshID + ":" + targetID
	if err := n.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish arrival event: %w", err)
	}
	return nil
}

// Subscribe returns the pub/sub stream of arrival events for one instance.
// Callers own the returned subscription and must Close it.
func (n *Notifier) Subscribe(ctx context.Context, meshID, instanceID string) *redis.PubSub {
	return n.rdb.Subscribe(ctx, notifyPrefix+meshID+":"+instanceID)
}
