// Command token mints a signed JWT for local development, using the
// same secret the server reads from the environment.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"task-hub/auth"
	"task-hub/domain"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("user", "", "user id (random uuid when empty)")
	username := flag.String("name", "dev", "username embedded in the token")
	role := flag.String("role", "user", "role embedded in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	if *userID == "" {
		*userID = uuid.NewString()
	}

	gate := auth.NewGate(secret)
	token, err := gate.GenerateToken(domain.Identity{
		UserID:   *userID,
		Username: *username,
		Role:     *role,
	}, *ttl)
	if err != nil {
		log.Fatal("token generation failed: ", err)
	}
	fmt.Println(token)
}
