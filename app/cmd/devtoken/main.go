package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"example.com/mechstore/app/internal/infra/security"
	authuc "example.com/mechstore/app/internal/usecase/auth"
)

// Prints a bearer token signed with JWT_SECRET for calling the
// authenticated cart endpoints locally.
func main() {
	userID := flag.String("user", "local-user", "subject of the token")
	email := flag.String("email", "", "email claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := security.NewJWTService(secret, *ttl).GenerateToken(authuc.Claims{
		UserID: *userID,
		Email:  *email,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
