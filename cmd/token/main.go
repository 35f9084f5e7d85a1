// Prints a signed bearer token for the tables API, using the same
// secret and expiry the serving binary validates against.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/mentorlane/insights/config"
	"github.com/mentorlane/insights/pkg/auth"
)

func main() {
	subject := flag.String("subject", "operator", "token subject")
	email := flag.String("email", "", "token email claim")
	flag.Parse()

	cfg := config.Load()
	token, err := auth.GenerateJWT(*subject, *email, cfg.JWTSecret, cfg.JWTExpirationHours)
	if err != nil {
		log.Fatalf("❌ Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
