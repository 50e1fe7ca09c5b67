// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/registry"
)

// PacketExpirer is the mailbox side of the sweep.
type PacketExpirer interface {
	Expire(ctx context.Context) (int64, error)
}

// StaleDemoter is the registry side of the sweep.
type StaleDemoter interface {
	DemoteStale(ctx context.Context, threshold time.Duration) (int64, error)
}

// Sweeper drives packet expiry and registration demotion on fixed,
// independent cadences. Failures are logged and the next tick tries again;
// a slow sweep delays its own next tick rather than stacking.
type Sweeper struct {
	mailbox      PacketExpirer
	registry     StaleDemoter
	log          *zap.Logger
	expireEvery  time.Duration
	demoteEvery  time.Duration
	offlineAfter time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

type Option func(*Sweeper)

// WithExpireInterval sets the packet-expiry cadence (default 60s).
func WithExpireInterval(d time.Duration) Option {
	return func(s *Sweeper) { s.expireEvery = d }
}

// WithDemoteInterval sets the demotion cadence (default 60s).
func WithDemoteInterval(d time.Duration) Option {
	return func(s *Sweeper) { s.demoteEvery = d }
}

// WithOfflineAfter sets the staleness threshold passed to DemoteStale.
func WithOfflineAfter(d time.Duration) Option {
	return func(s *Sweeper) { s.offlineAfter = d }
}

func New(mailbox PacketExpirer, reg StaleDemoter, log *zap.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{
		mailbox:      mailbox,
		registry:     reg,
		log:          log,
		expireEvery:  time.Minute,
		demoteEvery:  time.Minute,
		offlineAfter: registry.DefaultOfflineAfter,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches both sweep loops. Call Stop to end them.
func (s *Sweeper) Start() {
	s.wg.Add(2)
	go s.loop(s.expireEvery, s.expireOnce)
	go s.loop(s.demoteEvery, s.demoteOnce)
}

// Stop ends both loops and waits for any in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Sweeper) loop(every time.Duration, sweep func()) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	// First sweep runs right away so a restart clears backlog immediately
	sweep()

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-s.done:
			return
		}
	}
}

func (s *Sweeper) expireOnce() {
	n, err := s.mailbox.Expire(context.Background())
	switch {
	case err != nil:
		s.log.Warn("packet expiry sweep failed", zap.Error(err))
	case n > 0:
		s.log.Info("expired packets removed", zap.Int64("count", n))
	}
}

func (s *Sweeper) demoteOnce() {
	n, err := s.registry.DemoteStale(context.Background(), s.offlineAfter)
	switch {
	case err != nil:
		s.log.Warn("demotion sweep failed", zap.Error(err))
	case n > 0:
		s.log.Info("stale nodes marked offline", zap.Int64("count", n))
	}
}
