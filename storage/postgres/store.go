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

package postgres

import (
	"context"
	"database/sql"
	"time"
)

// DefaultOpTimeout bounds every storage operation, connection acquisition
// included. A request that cannot get a pooled connection in time fails
// retryably instead of parking forever.
const DefaultOpTimeout = 5 * time.Second

// Store implements storage.Store on PostgreSQL. All isolation is delegated
// to the database; the store holds no state beyond the connection pool.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

type Option func(*Store)

// WithOpTimeout overrides the per-operation timeout.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) { s.opTimeout = d }
}

func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, opTimeout: DefaultOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// opContext derives the deadline-bounded context every store method runs
// under.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}
