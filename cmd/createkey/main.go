// Command createkey generates a random key, saves it to the console's local
// key store under a given name, and prints example requests. Useful for
// exercising the proxy surface against a mock backend, where any opaque
// value passes.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/evaldeck/console/internal/config"
	"github.com/evaldeck/console/internal/models"
	"github.com/evaldeck/console/internal/store"
)

func main() {
	name := flag.String("name", "Generated API Key", "display name for the saved key")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	blobs, err := store.NewFileBlobStore(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	apiKey, err := generateKey()
	if err != nil {
		slog.Error("Failed to generate random API key", "error", err)
		os.Exit(1)
	}

	key := models.APIKey{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      *name,
		Key:       apiKey,
		CreatedAt: time.Now().UTC(),
	}

	repo := store.NewAPIKeyRepository(blobs)
	if err := repo.Add(context.Background(), key); err != nil {
		slog.Error("Failed to save API key", "error", err)
		os.Exit(1)
	}

	fmt.Println("✓ API key ready!")
	fmt.Println()
	fmt.Println("ID:", key.ID)
	fmt.Println("Name:", key.Name)
	fmt.Println("Created:", key.CreatedAt)
	fmt.Println()
	fmt.Println("API Key (use this in your requests):", apiKey)
	fmt.Println()
	fmt.Println("Example curl commands:")
	fmt.Println()
	fmt.Printf("# List evaluation runs through the proxy\n")
	fmt.Printf("curl -H \"X-API-KEY: %s\" http://localhost:%s/evaluations\n", apiKey, cfg.Port)
	fmt.Println()
	fmt.Printf("# Start a run from a locally staged dataset\n")
	fmt.Printf("curl -X POST -H \"Content-Type: application/json\" \\\n")
	fmt.Printf("  -d '{\"key_id\":\"%s\",\"experiment_name\":\"nightly\",\"dataset_id\":1}' \\\n", key.ID)
	fmt.Printf("  http://localhost:%s/v1/runs\n", cfg.Port)
}

// generateKey builds a 32-character random key over letters and digits.
// Rejection sampling keeps the character distribution uniform; plain modulo
// would bias toward the start of the charset.
func generateKey() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	const keyLength = 32

	charsetLen := len(charset)
	maxValidByte := byte((255 / charsetLen) * charsetLen)

	apiKeyBytes := make([]byte, keyLength)
	randomByte := make([]byte, 1)

	for i := range apiKeyBytes {
		for {
			if _, err := rand.Read(randomByte); err != nil {
				return "", err
			}

			if randomByte[0] < maxValidByte {
				apiKeyBytes[i] = charset[int(randomByte[0])%charsetLen]
				break
			}
		}
	}

	return string(apiKeyBytes), nil
}
