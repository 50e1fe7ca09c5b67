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

	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/registry"
)

type RegisterHandler struct {
	registry *registry.Registry
	log      *zap.Logger
}

func NewRegisterHandler(reg *registry.Registry, log *zap.Logger) *RegisterHandler {
	return &RegisterHandler{registry: reg, log: log}
}

// Register records a heartbeat: reachability plus liveness for one
// instance. Idempotent; a repeated heartbeat only refreshes last_seen.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status, err := h.registry.Heartbeat(r.Context(), req)
	if err != nil {
		h.log.Error("heartbeat failed", zap.Error(err))
		http.Error(w, "Failed to register instance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.RegisterResponse{
		OK:         true,
		InstanceID: req.InstanceID,
		MeshID:     req.MeshID,
		Status:     status,
	})
}
