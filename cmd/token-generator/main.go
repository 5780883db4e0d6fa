// Command token-generator mints a service bearer token with the configured
// signing secret, for calling a local planvox-api instance by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/planvox/planvox-api/internal/config"
	"github.com/planvox/planvox-api/internal/service/auth"
)

func main() {
	callerFlag := flag.String("caller", "", "caller UUID to embed in the token (random when empty)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}

	callerID := uuid.New()
	if *callerFlag != "" {
		callerID, err = uuid.Parse(*callerFlag)
		if err != nil {
			log.Fatalf("Invalid caller UUID %q: %v", *callerFlag, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := jwtService.GenerateToken(ctx, callerID)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("Caller: %s\n", callerID)
	fmt.Printf("Token:  %s\n", token)
	fmt.Printf("Expires in %d minutes.\n", cfg.Auth.TokenLifetimeMinutes)
}
