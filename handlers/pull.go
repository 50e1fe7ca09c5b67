// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/mailbox"
	"github.com/xelth-com/eckrelay/models"
)

type PullHandler struct {
	mailbox *mailbox.Mailbox
	log     *zap.Logger
}

func NewPullHandler(m *mailbox.Mailbox, log *zap.Logger) *PullHandler {
	return &PullHandler{mailbox: m, log: log}
}

// Pull drains every pending packet for one instance. Returned packets are
// removed from the store; pulling twice in a row yields an empty list.
func (h *PullHandler) Pull(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	meshID := vars["meshId"]
	instanceID := vars["instanceId"]

	packets, err := h.mailbox.Pull(r.Context(), meshID, instanceID)
	if err != nil {
		h.log.Error("pull failed", zap.Error(err))
		http.Error(w, "Failed to retrieve packets", http.StatusInternalServerError)
		return
	}
	if packets == nil {
		packets = []models.Packet{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.PullResponse{
		MeshID:  meshID,
		Packets: packets,
	})
}
