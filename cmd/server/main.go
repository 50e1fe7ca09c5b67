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

package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xelth-com/eckrelay/config"
	"github.com/xelth-com/eckrelay/handlers"
	"github.com/xelth-com/eckrelay/mailbox"
	"github.com/xelth-com/eckrelay/middleware"
	"github.com/xelth-com/eckrelay/registry"
	"github.com/xelth-com/eckrelay/storage"
	"github.com/xelth-com/eckrelay/storage/memory"
	"github.com/xelth-com/eckrelay/storage/postgres"
	redisstore "github.com/xelth-com/eckrelay/storage/redis"
	"github.com/xelth-com/eckrelay/sweeper"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Storage: postgres when DATABASE_URL is set, otherwise in-memory
	var store storage.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("failed to open database", zap.Error(err))
		}
		defer db.Close()
		db.SetMaxOpenConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)

		pgStore := postgres.NewStore(db, postgres.WithOpTimeout(cfg.StorageTimeout))
		if err := pgStore.Migrate(); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		store = pgStore
		log.Info("storage initialized", zap.String("backend", "postgres"))
	} else {
		store = memory.NewStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// Optional redis arrival notifications
	var mailboxOpts []mailbox.Option
	mailboxOpts = append(mailboxOpts, mailbox.WithDefaultTTL(cfg.DefaultTTL))
	if cfg.SingleMesh {
		mailboxOpts = append(mailboxOpts, mailbox.WithSingleMesh())
	}
	if cfg.RedisURL != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisURL})
		mailboxOpts = append(mailboxOpts, mailbox.WithNotifier(redisstore.NewNotifier(rdb)))
		log.Info("arrival notifications enabled", zap.String("redis", cfg.RedisURL))
	}

	mbox := mailbox.New(store, log, mailboxOpts...)

	var registryOpts []registry.Option
	if cfg.SingleMesh {
		registryOpts = append(registryOpts, registry.WithSingleMesh())
	}
	reg := registry.New(store, log, registryOpts...)

	// Background expiry and demotion
	sweep := sweeper.New(mbox, reg, log,
		sweeper.WithExpireInterval(cfg.ExpireInterval),
		sweeper.WithDemoteInterval(cfg.DemoteInterval),
		sweeper.WithOfflineAfter(cfg.OfflineAfter))
	sweep.Start()
	defer sweep.Stop()

	// Handlers
	pushHandler := handlers.NewPushHandler(mbox, log)
	pullHandler := handlers.NewPullHandler(mbox, log)
	registerHandler := handlers.NewRegisterHandler(reg, log)
	meshHandler := handlers.NewMeshHandler(reg, log)

	// Routes; /health stays outside the API-key gate
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.HandleFunc("/health", handlers.Health).Methods("GET")

	api := r.PathPrefix("/").Subrouter()
	if cfg.APIKeysRequired {
		api.Use(middleware.NewAPIKeyMiddleware(store))
	}
	api.HandleFunc("/register", registerHandler.Register).Methods("POST")
	api.HandleFunc("/push", pushHandler.Push).Methods("POST")
	api.HandleFunc("/pull/{meshId}/{instanceId}", pullHandler.Pull).Methods("GET")
	api.HandleFunc("/mesh/{meshId}", meshHandler.MeshStatus).Methods("GET")
	api.HandleFunc("/mesh/{meshId}/{instanceId}", meshHandler.ResolveNode).Methods("GET")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("relay listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}
