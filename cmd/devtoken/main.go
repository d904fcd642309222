// Command devtoken mints a JWT accepted by the API, for local testing.
//
//	go run ./cmd/devtoken -role client
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/utils"
)

func main() {
	id := flag.String("id", "", "user id (random when empty)")
	role := flag.String("role", string(models.RoleClient), "client, freelancer or admin")
	flag.Parse()

	cfg, err := config.LoadAuth()
	if err != nil {
		log.Fatal(err)
	}

	uid := *id
	if uid == "" {
		uid = uuid.NewString()
	} else if _, err := uuid.Parse(uid); err != nil {
		log.Fatalf("invalid -id: %v", err)
	}
	switch models.Role(*role) {
	case models.RoleClient, models.RoleFreelancer, models.RoleAdmin:
	default:
		log.Fatalf("invalid -role %q", *role)
	}

	tok, err := utils.SignJWT(cfg.JWTSecret, uid, *role, cfg.JWTExpiresMin)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("user_id=%s\nrole=%s\ntoken=%s\n", uid, *role, tok)
}
