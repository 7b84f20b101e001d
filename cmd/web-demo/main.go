package main

import (
	"log"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"github.com/openfacepoker/ofc-server-go/internal/config"
	"github.com/openfacepoker/ofc-server-go/internal/game"
	"github.com/openfacepoker/ofc-server-go/internal/server"
)

// Standalone demo server: default config, one pre-created pineapple
// game, and the full websocket protocol on :8080.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("config: ", err)
	}
	cfg.Server.WebSocket.Address = ":8080"

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("logger: ", err)
	}
	defer logger.Sync()

	engine := game.NewEngine(logger, quartz.NewReal())
	srv := server.New(cfg, engine, logger)

	// Pre-seeded game so a fresh client has something to watch.
	seats := []game.Seat{
		{ID: "player1", Name: "Alice"},
		{ID: "player2", Name: "Bob"},
	}
	if err := engine.StartGame("demo", seats, game.PineappleRules()); err != nil {
		log.Fatal("demo game: ", err)
	}

	log.Println("🚀 OFC demo server starting on :8080")
	log.Println("📡 WebSocket endpoint: ws://localhost:8080/ws")
	log.Println(`🎮 Demo game ready: send {"type":"join_view","game_id":"demo"}`)

	if err := srv.Start(); err != nil {
		log.Fatal("serve: ", err)
	}
}
