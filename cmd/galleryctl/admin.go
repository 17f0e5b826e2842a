package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/photobooth/gallery/internal/logger"
	"github.com/photobooth/gallery/internal/model"
	"github.com/photobooth/gallery/internal/repository"
	"github.com/photobooth/gallery/internal/service"
)

const adminTimeout = 30 * time.Second

// admin bundles the services the database commands work through.
type admin struct {
	repo   *repository.Repository
	users  *service.UserService
	tokens *service.TokenService
}

func openAdmin(ctx context.Context, databaseURL string, stderr io.Writer) (*admin, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database %s: %s", logger.RedactURL(databaseURL), logger.SanitizeError(err, databaseURL))
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return &admin{
		repo:   repo,
		users:  service.NewUserService(repo, log),
		tokens: service.NewTokenService(repo, repo, nil, log),
	}, nil
}

func (a *admin) Close() {
	a.tokens.Wait()
	a.repo.Close()
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	databaseURL := fs.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	return fs, databaseURL
}

func userCreate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, databaseURL := newFlagSet("user create", stderr)
	email := fs.String("email", "", "user email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "password (at least 8 characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, adminTimeout)
	defer cancel()

	a, err := openAdmin(ctx, *databaseURL, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.users.Create(ctx, service.CreateUserInput{
		Email:    *email,
		Name:     *name,
		Password: *password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "created user %s <%s>\n", user.ID, user.Email)
	return nil
}

func tokenGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, databaseURL := newFlagSet("token generate", stderr)
	email := fs.String("email", "", "owner email")
	name := fs.String("name", "default", "token name")
	abilitiesInput := fs.String("abilities", "", "comma-separated abilities (upload,delete); empty grants *")
	expires := fs.Duration("expires", 0, "lifetime, e.g. 720h; zero never expires")
	format := fs.String("format", "plain", "output format: plain or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}

	ctx, cancel := context.WithTimeout(ctx, adminTimeout)
	defer cancel()

	a, err := openAdmin(ctx, *databaseURL, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.users.GetByEmail(ctx, *email)
	if err != nil {
		return err
	}

	input := service.IssueTokenInput{
		UserID:    user.ID,
		Name:      *name,
		Abilities: parseAbilities(*abilitiesInput),
	}
	if *expires > 0 {
		at := time.Now().UTC().Add(*expires)
		input.ExpiresAt = &at
	}

	token, plaintext, err := a.tokens.Issue(ctx, input)
	if err != nil {
		return err
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Fprintln(stdout, plaintext)
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(model.APITokenCreateResponse{
			Token:          token.ToResponse(time.Now()),
			PlaintextToken: plaintext,
		})
	default:
		return fmt.Errorf("invalid format %q; use plain or json", *format)
	}
	return nil
}

func tokenList(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, databaseURL := newFlagSet("token list", stderr)
	email := fs.String("email", "", "owner email")
	all := fs.Bool("all", false, "list tokens of every user")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*email == "") == !*all {
		return errors.New("exactly one of --email or --all is required")
	}

	ctx, cancel := context.WithTimeout(ctx, adminTimeout)
	defer cancel()

	a, err := openAdmin(ctx, *databaseURL, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	var users []*model.User
	if *all {
		users, err = a.users.List(ctx)
	} else {
		var user *model.User
		user, err = a.users.GetByEmail(ctx, *email)
		users = []*model.User{user}
	}
	if err != nil {
		return err
	}

	now := time.Now()
	var out []model.APITokenResponse
	for _, user := range users {
		tokens, err := a.tokens.List(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, t := range tokens {
			out = append(out, t.ToResponse(now))
		}
	}

	writeTokenTable(stdout, out)
	return nil
}

func tokenRevoke(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, databaseURL := newFlagSet("token revoke", stderr)
	id := fs.String("id", "", "token id")
	email := fs.String("email", "", "owner email")
	all := fs.Bool("all", false, "revoke every token of the owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("--email is required")
	}
	if (*id == "") == !*all {
		return errors.New("exactly one of --id or --all is required")
	}

	ctx, cancel := context.WithTimeout(ctx, adminTimeout)
	defer cancel()

	a, err := openAdmin(ctx, *databaseURL, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.users.GetByEmail(ctx, *email)
	if err != nil {
		return err
	}

	if *all {
		n, err := a.tokens.RevokeAll(ctx, user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "revoked %d token(s)\n", n)
		return nil
	}

	if err := a.tokens.Revoke(ctx, user.ID, *id); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "revoked token %s\n", *id)
	return nil
}

func migrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, databaseURL := newFlagSet("migrate", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, adminTimeout)
	defer cancel()

	a, err := openAdmin(ctx, *databaseURL, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.repo.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "migrations applied")
	return nil
}

// parseAbilities splits a comma list. Empty input yields nil, which the
// token service turns into the wildcard.
func parseAbilities(input string) []string {
	var abilities []string
	for _, part := range strings.Split(input, ",") {
		if a := strings.TrimSpace(part); a != "" {
			abilities = append(abilities, a)
		}
	}
	return abilities
}

func writeTokenTable(w io.Writer, tokens []model.APITokenResponse) {
	if len(tokens) == 0 {
		fmt.Fprintln(w, "no tokens")
		return
	}
	fmt.Fprintf(w, "%-26s  %-26s  %-20s  %-14s  %s\n", "ID", "USER", "NAME", "ABILITIES", "STATUS")
	for _, t := range tokens {
		status := "active"
		if t.IsExpired {
			status = "expired"
		}
		fmt.Fprintf(w, "%-26s  %-26s  %-20s  %-14s  %s\n",
			t.ID, t.UserID, t.Name, strings.Join(t.Abilities, ","), status)
	}
}
