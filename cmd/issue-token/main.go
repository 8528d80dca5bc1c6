// Command issue-token prints a signed access token for the API.
//
//	issue-token -realm viewer -name dashboard
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/attaboy/lifestats/internal/auth"
	"github.com/attaboy/lifestats/internal/infra"
	"github.com/google/uuid"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "issue-token:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	realm := fs.String("realm", string(auth.RealmPlayer), "token realm: player or viewer")
	subject := fs.String("subject", "", "subject UUID (random if empty)")
	name := fs.String("name", "", "display name stored in the token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := auth.Realm(*realm)
	if !r.IsValid() {
		return fmt.Errorf("unknown realm %q", *realm)
	}

	id := uuid.New()
	if *subject != "" {
		parsed, err := uuid.Parse(*subject)
		if err != nil {
			return fmt.Errorf("parse subject: %w", err)
		}
		id = parsed
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.AuthEnabled = true
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry).GenerateToken(r, id, *name)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Println(token)
	return nil
}
