// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/mailbox"
	"github.com/xelth-com/eckrelay/models"
)

type PushHandler struct {
	mailbox *mailbox.Mailbox
	log     *zap.Logger
}

func NewPushHandler(m *mailbox.Mailbox, log *zap.Logger) *PushHandler {
	return &PushHandler{mailbox: m, log: log}
}

// Push accepts one encrypted packet for later pickup.
func (h *PushHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	packetID, err := h.mailbox.Push(r.Context(), req)
	if errors.Is(err, mailbox.ErrPayloadTooLarge) {
		http.Error(w, "Payload exceeds 1 MiB", http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		h.log.Error("push failed", zap.Error(err))
		http.Error(w, "Failed to store packet", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.PushResponse{
		OK:       true,
		PacketID: packetID,
	})
}
