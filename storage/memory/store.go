// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/storage"
)

// Store implements storage.Store in process memory. It backs tests and
// single-binary deployments that have no database. One mutex guards all
// three tables; every operation runs to completion under it, which gives
// the same select-then-delete atomicity the postgres backend gets from
// its transactions.
type Store struct {
	mu            sync.Mutex
	packets       []models.Packet
	registrations map[regKey]models.Registration
	accounts      map[string]models.Account
}

type regKey struct {
	meshID     string
	instanceID string
}

func NewStore() *Store {
	return &Store{
		registrations: make(map[regKey]models.Registration),
		accounts:      make(map[string]models.Account),
	}
}

func (s *Store) InsertPacket(ctx context.Context, p models.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets = append(s.packets, p)
	return nil
}

func (s *Store) PullPackets(ctx context.Context, meshID, targetID string) ([]models.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var pulled []models.Packet
	remaining := s.packets[:0]
	for _, p := range s.packets {
		if p.MeshID == meshID && p.TargetInstanceID == targetID && p.TTL.After(now) {
			pulled = append(pulled, p)
		} else {
			remaining = append(remaining, p)
		}
	}
	s.packets = remaining

	// Insert order already approximates creation order; the stable sort
	// only reorders entries whose timestamps actually differ.
	sort.SliceStable(pulled, func(i, j int) bool {
		return pulled[i].CreatedAt.Before(pulled[j].CreatedAt)
	})
	return pulled, nil
}

func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	remaining := s.packets[:0]
	for _, p := range s.packets {
		if p.TTL.After(now) {
			remaining = append(remaining, p)
		} else {
			removed++
		}
	}
	s.packets = remaining
	return removed, nil
}

func (s *Store) UpsertRegistration(ctx context.Context, r models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[regKey{r.MeshID, r.InstanceID}] = r
	return nil
}

func (s *Store) ListRegistrations(ctx context.Context, meshID string) ([]models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var regs []models.Registration
	for key, r := range s.registrations {
		if key.meshID == meshID {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].LastSeen.After(regs[j].LastSeen)
	})
	return regs, nil
}

func (s *Store) GetRegistration(ctx context.Context, meshID, instanceID string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.registrations[regKey{meshID, instanceID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (s *Store) DemoteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var demoted int64
	for key, r := range s.registrations {
		if r.Status == models.StatusOnline && r.LastSeen.Before(cutoff) {
			r.Status = models.StatusOffline
			s.registrations[key] = r
			demoted++
		}
	}
	return demoted, nil
}

func (s *Store) GetAccount(ctx context.Context, apiKey string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[apiKey]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

// PutAccount seeds an account. Used by tests and provisioning tools.
func (s *Store) PutAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.APIKey] = a
}
