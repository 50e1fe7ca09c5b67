// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/xelth-com/eckrelay/models"
	"github.com/xelth-com/eckrelay/storage"
)

type contextKey string

const accountKey contextKey = "account"

// NewAPIKeyMiddleware gates requests on a known X-Api-Key, looked up in
// the accounts table. This is gateway policy, not relay logic: the relay
// core never reads accounts, and the middleware does no rate limiting —
// it only attaches the account for whatever sits in front later.
func NewAPIKeyMiddleware(accounts storage.AccountStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-Api-Key")
			if apiKey == "" {
				http.Error(w, "Missing API key", http.StatusUnauthorized)
				return
			}

			account, err := accounts.GetAccount(r.Context(), apiKey)
			if errors.Is(err, storage.ErrNotFound) {
				http.Error(w, "Unknown API key", http.StatusUnauthorized)
				return
			}
			if err != nil {
				http.Error(w, "Account lookup failed", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccount extracts the authenticated account from the request context.
func GetAccount(r *http.Request) (*models.Account, bool) {
	account, ok := r.Context().Value(accountKey).(*models.Account)
	return account, ok
}
