// ABOUTME: Setup and account commands: init, seed, register, login, logout, whoami, users
// ABOUTME: Login stores a session token so later commands know who is speaking

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/store"
)

// cmdInit writes a config file from prompted answers and creates the database.
func (a *app) cmdInit(ctx context.Context, args []string) error {
	defaults := config.Default()

	fmt.Fprintln(a.out, "coven-chat configuration setup")
	fmt.Fprintln(a.out, "==============================")
	fmt.Fprintln(a.out)

	outputFile := a.prompt("Config file path", a.configPath)

	if _, err := os.Stat(outputFile); err == nil {
		if !a.confirm("File exists. Overwrite?") {
			fmt.Fprintln(a.out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(a.out, "\n--- Database ---")
	dbPath := a.prompt("SQLite database path", defaults.Database.Path)
	driver := a.prompt("Driver (sqlite/sqlite3)", defaults.Database.Driver)

	fmt.Fprintln(a.out, "\n--- Chat ---")
	pollInterval := a.prompt("Refresh interval", defaults.Chat.PollIntervalRaw)

	fmt.Fprintln(a.out, "\n--- Logging ---")
	logLevel := a.prompt("Log level (debug/info/warn/error)", defaults.Logging.Level)
	logFormat := a.prompt("Log format (text/json)", defaults.Logging.Format)

	var cfg strings.Builder
	cfg.WriteString("# coven-chat configuration\n")
	cfg.WriteString("# Generated by coven-chat init\n\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	cfg.WriteString(fmt.Sprintf("  driver: %q\n", driver))
	cfg.WriteString("\n")

	cfg.WriteString("chat:\n")
	cfg.WriteString(fmt.Sprintf("  history_limit: %d\n", defaults.Chat.HistoryLimit))
	cfg.WriteString(fmt.Sprintf("  poll_interval: %q\n", pollInterval))
	cfg.WriteString(fmt.Sprintf("  session_ttl: %q\n", defaults.Chat.SessionTTLRaw))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  bcrypt_cost: %d\n", defaults.Auth.BcryptCost))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Read the file back so a bad answer is reported now, not on first use.
	a.configPath = outputFile
	if err := a.open(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintf(a.out, "Database ready at %s\n", a.cfg.Database.Path)
	if outputFile != config.DefaultPath() {
		fmt.Fprintf(a.out, "\nSet %s=%s to use this config.\n", config.EnvConfigPath, outputFile)
	}
	fmt.Fprintln(a.out, "\nNext:")
	fmt.Fprintln(a.out, "  coven-chat register")
	return nil
}

// cmdSeed loads the demo data into an empty database.
func (a *app) cmdSeed(ctx context.Context, args []string) error {
	if err := a.open(); err != nil {
		return err
	}

	seeded, err := a.store.Seed(ctx)
	if err != nil {
		return err
	}
	if !seeded {
		fmt.Fprintln(a.out, "The database already has users; nothing was seeded.")
		return nil
	}

	green := color.New(color.FgGreen)
	green.Fprintln(a.out, "Demo data loaded.")
	fmt.Fprintf(a.out, "Every demo user has the password %q, for example:\n", store.SeedPassword)
	fmt.Fprintln(a.out, "  coven-chat login alice@example.com")
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, nil, nil)
	if err != nil {
		return err
	}

	name := parsed.arg(0)
	if name == "" {
		name = a.prompt("Username", "")
	}
	email := parsed.arg(1)
	if email == "" {
		email = a.prompt("Email", "")
	}
	password, err := a.promptPassword("Password")
	if err != nil {
		return err
	}

	if err := a.open(); err != nil {
		return err
	}
	u, err := a.svc.Register(ctx, name, email, password)
	if err != nil {
		return explain(err, store.ErrAlreadyExists, "That username or email is already registered.")
	}

	color.New(color.FgGreen).Fprintf(a.out, "Registered %s <%s>.\n", u.Name, u.Email)
	fmt.Fprintln(a.out, "Log in with: coven-chat login", u.Email)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, nil, nil)
	if err != nil {
		return err
	}

	email := parsed.arg(0)
	if email == "" {
		email = a.prompt("Email", "")
	}
	password, err := a.promptPassword("Password")
	if err != nil {
		return err
	}

	if err := a.open(); err != nil {
		return err
	}
	u, sess, err := a.svc.StartSession(ctx, email, password, a.cfg.Chat.SessionTTL)
	if err != nil {
		return err
	}

	// A previous session on this machine is replaced.
	if old, err := loadSession(); err == nil && old != "" && old != sess.Token {
		if err := a.svc.EndSession(ctx, old); err != nil {
			a.logger.Warn("could not end previous session", "error", err)
		}
	}
	if err := saveSession(sess.Token); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(a.out, "Welcome, %s!\n", u.Name)
	gray := color.New(color.FgHiBlack)
	gray.Fprintf(a.out, "Session valid until %s\n", sess.ExpiresAt.Local().Format("Jan 02 15:04"))
	return nil
}

func (a *app) cmdLogout(ctx context.Context, args []string) error {
	token, err := loadSession()
	if err != nil {
		return err
	}
	if token == "" {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}

	if err := a.open(); err != nil {
		return err
	}
	if err := a.svc.EndSession(ctx, token); err != nil {
		return err
	}
	if err := clearSession(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context, args []string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(a.out, "%s", me.Name)
	fmt.Fprintf(a.out, " <%s>\n", me.Email)
	return nil
}

// cmdUsers lists everyone except the logged-in user, the people one can message.
func (a *app) cmdUsers(ctx context.Context, args []string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	users, err := a.svc.Users(ctx, me.ID)
	if err != nil {
		return err
	}
	a.printUsers("Users", users, 0)
	return nil
}
