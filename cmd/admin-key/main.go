package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/api/middleware"
)

func main() {
	apiKeyFlag := flag.String("api-key", "", "Admin API key to hash (a random one is generated when empty)")
	flag.Parse()

	// Trim so the stored hash matches what the server receives (AuthMiddleware trims the Bearer token)
	apiKey := strings.TrimSpace(*apiKeyFlag)
	if apiKey == "" {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate API key: %v\n", err)
			os.Exit(1)
		}
		apiKey = hex.EncodeToString(buf)
		fmt.Printf("Generated API key (save it; it cannot be retrieved later):\n  %s\n\n", apiKey)
	}

	hash, err := middleware.HashAPIKey(apiKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Set this in the server environment:")
	fmt.Printf("  ADMIN_API_KEY_HASH='%s'\n", hash)
}
