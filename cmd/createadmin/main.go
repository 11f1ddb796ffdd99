// Command createadmin bootstraps an administrator account. It prompts for
// the password on the terminal without echo, so the plaintext never lands in
// shell history or process listings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/avolkov/accountd/internal/logging"
	"github.com/avolkov/accountd/internal/randx"
	"github.com/avolkov/accountd/internal/server"
	"github.com/avolkov/accountd/internal/server/config"
	"github.com/avolkov/accountd/internal/server/services"
)

func main() {
	var (
		dsn   = flag.String("d", "mongodb://localhost:27017/accountd", "database DSN")
		name  = flag.String("name", "", "administrator display name")
		email = flag.String("email", "", "administrator email")
	)
	flag.Parse()

	if *name == "" || *email == "" {
		log.Fatal("both -name and -email are required")
	}

	pass, err := promptPassword()
	if err != nil {
		log.Fatalf("reading password: %v", err)
	}

	ctx := context.Background()

	store, closeStore, err := server.OpenStore(ctx, *dsn)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	defer func() { _ = closeStore(ctx) }()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// token secrets are irrelevant here: registration never signs anything
	cfg := &config.Config{}
	cfg.LoadDefaults()

	us := services.NewUserService(store, logger, cfg)
	user, err := us.Register(ctx, services.RegisterInput{
		Name:     *name,
		Email:    *email,
		Password: pass,
		IsAdmin:  true,
	})
	if err != nil {
		log.Fatalf("creating administrator: %v", err)
	}

	fmt.Printf("administrator %s created (id %s)\n", user.Email, user.ID)
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	defer randx.Wipe(first)
	defer randx.Wipe(second)

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}

	return string(first), nil
}
