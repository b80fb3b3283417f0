package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/teamchallenge/challenge-backend/internal/httpapi"
	"github.com/teamchallenge/challenge-backend/internal/hub"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", zap.Error(err))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	origins := []string{"*"}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, clockwork.NewRealClock(), log)

	handler := httpapi.SetupRoutes(h, log, origins)

	log.Info("listening", zap.String("addr", ":"+port))
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
