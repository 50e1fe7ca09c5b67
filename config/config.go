// Copyright (C) 2025 xelth.com
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all relay configuration, read from the environment.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string

	DefaultTTL     time.Duration
	ExpireInterval time.Duration
	DemoteInterval time.Duration
	OfflineAfter   time.Duration
	StorageTimeout time.Duration

	SingleMesh      bool
	APIKeysRequired bool
}

// Load reads configuration from the environment, after loading a .env
// file if one exists. Every knob has a default; only DATABASE_URL has no
// fallback — an empty value selects the in-memory backend.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		Port:        getEnv("PORT", "3200"),

		DefaultTTL:     getSeconds("DEFAULT_TTL_SECONDS", 3600),
		ExpireInterval: getSeconds("SWEEP_INTERVAL_SECONDS", 60),
		DemoteInterval: getSeconds("DEMOTE_INTERVAL_SECONDS", 60),
		OfflineAfter:   getMinutes("OFFLINE_AFTER_MINUTES", 20),
		StorageTimeout: getSeconds("STORAGE_TIMEOUT_SECONDS", 5),

		SingleMesh:      getEnv("SINGLE_MESH", "false") == "true",
		APIKeysRequired: getEnv("API_KEYS_REQUIRED", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getSeconds(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Second
}

func getMinutes(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Minute
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
