// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/storage"
)

func (s *Store) GetAccount(ctx context.Context, apiKey string) (*models.Account, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var a models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT api_key, plan, allowance
		FROM accounts
		WHERE api_key = $1`,
		apiKey).Scan(&a.APIKey, &a.Plan, &a.Allowance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}
