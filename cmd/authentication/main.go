// Command authentication is a development token issuer. It signs a JWT for
// whatever user id it is given so the trade API can be exercised locally; it does
// not check credentials.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gartstein/linktrade/internal/trade/auth"
	"github.com/gartstein/linktrade/internal/trade/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func tokenHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
		if err != nil {
			http.Error(w, "user_id must be a UUID", http.StatusBadRequest)
			return
		}

		token, err := auth.GenerateToken(userID.String(), secret, auth.DefaultTokenTTL)
		if err != nil {
			logger.Error("Failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		resp := TokenResponse{Token: token, ExpiresAt: time.Now().Add(auth.DefaultTokenTTL).UTC()}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("Failed to encode token", zap.Error(err))
		}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", tokenHandler(cfg.JWTSecret, logger))

	addr := fmt.Sprintf(":%d", cfg.AuthPort)
	logger.Info("Authentication service running", zap.String("endpoint", addr))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Authentication service stopped", zap.Error(err))
	}
}
