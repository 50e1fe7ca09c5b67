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

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/registry"
	"github.com/xelth-com/eckrelay/storage"
)

type MeshHandler struct {
	registry *registry.Registry
	log      *zap.Logger
}

func NewMeshHandler(reg *registry.Registry, log *zap.Logger) *MeshHandler {
	return &MeshHandler{registry: reg, log: log}
}

// MeshStatus lists every node in a mesh, most recently seen first.
func (h *MeshHandler) MeshStatus(w http.ResponseWriter, r *http.Request) {
	meshID := mux.Vars(r)["meshId"]

	regs, err := h.registry.Query(r.Context(), meshID)
	if err != nil {
		h.log.Error("mesh status failed", zap.Error(err))
		http.Error(w, "Failed to query mesh", http.StatusInternalServerError)
		return
	}

	nodes := make([]models.NodeStatus, 0, len(regs))
	for _, reg := range regs {
		nodes = append(nodes, reg.NodeView())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.MeshStatusResponse{
		MeshID: meshID,
		Nodes:  nodes,
	})
}

// ResolveNode returns the registration of a single instance, or 404 when
// the instance has never heartbeat in that mesh.
func (h *MeshHandler) ResolveNode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	meshID := vars["meshId"]
	instanceID := vars["instanceId"]

	reg, err := h.registry.Resolve(r.Context(), meshID, instanceID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Unknown instance", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("resolve failed", zap.Error(err))
		http.Error(w, "Failed to resolve instance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reg.NodeView())
}
