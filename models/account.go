// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package models

// Account holds rate-limit bookkeeping keyed by API key. The relay core
// never consumes it; the gateway may consult it when API keys are required.
type Account struct {
	APIKey    string `json:"api_key" db:"api_key"`
	Plan      string `json:"plan" db:"plan"`
	Allowance int    `json:"allowance" db:"allowance"`
}

const (
	PlanFree = "free"
	PlanPro  = "pro"
)
