package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/config"
	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/db"
	"github.com/loopfish/AIImageGuessChallenge-sub001/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn, err := db.Open(cfg.DBMaxOpenConns, cfg.DBMaxIdleConns,
		time.Duration(cfg.DBConnMaxLifetimeSeconds)*time.Second,
		time.Duration(cfg.DBConnMaxIdleTimeSeconds)*time.Second)
	if err != nil {
		log.Printf("database unavailable, running without persistence: %v", err)
		conn = nil
	} else if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	defer srv.Close()

	log.Printf("image-guess server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
