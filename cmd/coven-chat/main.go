// ABOUTME: Entry point for coven-chat, a terminal client for the local chat database
// ABOUTME: Dispatches subcommands for accounts, direct messages, and group chats

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  ___ _____   _____ _ __         ___| |__   __ _| |_
 / __/ _ \ \ / / _ \ '_ \ _____ / __| '_ \ / _' | __|
| (_| (_) \ V /  __/ | | |_____| (__| | | | (_| | |_
 \___\___/ \_/ \___|_| |_|      \___|_| |_|\__,_|\__|
`

// app carries the streams and lazily opened resources shared by commands.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.SQLiteStore
	svc        *chat.Service
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:         bufio.NewReader(in),
		out:        out,
		errOut:     errOut,
		configPath: config.DefaultPath(),
	}
}

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)

	if len(os.Args) < 2 {
		a.printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := a.run(ctx, os.Args[1:])
	a.close()

	if err != nil {
		a.reportError(err)
		os.Exit(1)
	}
}

// run dispatches one command line.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.printUsage()
		return nil
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return a.cmdInit(ctx, rest)
	case "seed":
		return a.cmdSeed(ctx, rest)
	case "register":
		return a.cmdRegister(ctx, rest)
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		return a.cmdLogout(ctx, rest)
	case "whoami":
		return a.cmdWhoami(ctx, rest)
	case "users":
		return a.cmdUsers(ctx, rest)
	case "dm":
		return a.cmdDM(ctx, rest)
	case "groups":
		return a.cmdGroups(ctx, rest)
	case "group":
		return a.cmdGroup(ctx, rest)
	case "watch":
		return a.cmdWatch(ctx, rest)
	case "version", "--version":
		fmt.Fprintf(a.out, "coven-chat %s\n", version)
		return nil
	case "help", "-h", "--help":
		a.printUsage()
		return nil
	default:
		a.printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// open loads the configuration and opens the store and chat service once.
func (a *app) open() error {
	if a.svc != nil {
		return nil
	}

	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.logger = setupLogger(cfg.Logging, a.errOut)

	st, err := store.NewSQLiteStore(cfg.Database.Path,
		store.WithDriver(cfg.Database.Driver),
		store.WithBcryptCost(cfg.Auth.BcryptCost),
		store.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("opening chat database: %w", err)
	}
	a.store = st
	a.svc = chat.NewService(st,
		chat.WithLogger(a.logger),
		chat.WithHistoryLimit(cfg.Chat.HistoryLimit),
	)
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
	a.store = nil
	a.svc = nil
}

func (a *app) printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)
	w := a.out

	cyan.Fprint(w, banner)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: coven-chat <command> [args]")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Setup:")
	fmt.Fprintln(w, "  init                          Write a config file and create the database")
	fmt.Fprintln(w, "  seed                          Load demo users, groups, and messages into an empty database")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Account:")
	fmt.Fprintln(w, "  register [name] [email]       Create an account")
	fmt.Fprintln(w, "  login [email]                 Log in and remember the session")
	fmt.Fprintln(w, "  logout                        Forget the current session")
	fmt.Fprintln(w, "  whoami                        Show the logged-in user")
	fmt.Fprintln(w, "  users                         List everyone else")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Direct messages:")
	fmt.Fprintln(w, "  dm <email> [message]          Send a message, or chat interactively")
	fmt.Fprintln(w, "  watch dm <email>              Follow a conversation as it arrives")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Groups:")
	fmt.Fprintln(w, "  groups [--all]                List groups you created and joined")
	fmt.Fprintln(w, "  group create <name>           Create a group (or report the existing one)")
	fmt.Fprintln(w, "  group open <name>             Join if needed, show history, and chat")
	fmt.Fprintln(w, "  group say <name> <message>    Post one message")
	fmt.Fprintln(w, "  group history <name>          Show recent messages [--limit N]")
	fmt.Fprintln(w, "  group members <name>          List members")
	fmt.Fprintln(w, "  group add <name> <email>      Add a user to the group")
	fmt.Fprintln(w, "  group kick <name> <email>     Remove a member (creator only)")
	fmt.Fprintln(w, "  group leave <name>            Leave the group")
	fmt.Fprintln(w, "  group rename <old> <new>      Rename the group (creator only)")
	fmt.Fprintln(w, "  group delete <name> [--yes]   Delete the group and its history (creator only)")
	fmt.Fprintln(w, "  group export <name>           Write a transcript [--format md|html] [--theme light|dark] [--out FILE]")
	fmt.Fprintln(w, "  watch group <name>            Follow a group as messages arrive")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  %-29s %s\n", config.EnvConfigPath, "Config file path (default: $XDG_CONFIG_HOME/coven/chat.yaml)")
	fmt.Fprintln(w)
}
