package main

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"seraphine-concierge-backend/internal/config"
	"seraphine-concierge-backend/internal/server"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg := config.Load()
	s, err := server.NewServer(cfg, log)
	if err != nil {
		log.Fatalw("failed to create server", "err", err)
	}
	defer s.Close()

	addr := ":" + cfg.Port
	log.Infow("concierge server listening", "addr", addr, "shop", cfg.ShopName)
	log.Fatal(http.ListenAndServe(addr, s.Router()))
}
