// ABOUTME: Direct messages, the interactive chat loop, and the watch command
// ABOUTME: New messages are found by the poller re-reading history on a timer

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/poller"
	"github.com/2389/coven-chat/internal/store"
)

func (a *app) cmdDM(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, nil, nil)
	if err != nil {
		return err
	}
	email := parsed.arg(0)
	if email == "" {
		return usageError("dm <email> [message]")
	}

	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	peer, err := a.directPeer(ctx, me, email)
	if err != nil {
		return err
	}

	if content := parsed.rest(1); content != "" {
		if _, err := a.svc.SendDirect(ctx, me.Email, peer.Email, content); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "Sent to %s.\n", peer.Name)
		return nil
	}

	fetch := func(ctx context.Context) ([]*store.Message, error) {
		return a.svc.DirectHistory(ctx, me.Email, peer.Email, 0)
	}
	send := func(ctx context.Context, content string) error {
		_, err := a.svc.SendDirect(ctx, me.Email, peer.Email, content)
		return err
	}
	return a.converse(ctx, me, "Chat with "+peer.Name, fetch, send)
}

// directPeer resolves the other side of a direct conversation.
func (a *app) directPeer(ctx context.Context, me *store.User, email string) (*store.User, error) {
	peer, err := a.svc.LookupUserByEmail(ctx, email)
	if err != nil {
		return nil, explain(err, store.ErrNotFound, "No user is registered with %s.", email)
	}
	if peer.ID == me.ID {
		return nil, &userError{msg: "You cannot message yourself.", err: store.ErrInvalidInput}
	}
	return peer, nil
}

// memberGroup resolves name and checks that me belongs to it.
func (a *app) memberGroup(ctx context.Context, me *store.User, name string) (*store.Group, error) {
	g, err := a.svc.Group(ctx, name)
	if err != nil {
		return nil, explain(err, store.ErrNotFound, "There is no group named %q.", name)
	}
	member, err := a.svc.IsMember(ctx, me.Email, g.Name)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, &userError{
			msg: fmt.Sprintf("You are not a member of %q. Run 'coven-chat group open %s' to join.", g.Name, g.Name),
			err: chat.ErrForbidden,
		}
	}
	return g, nil
}

// converse shows the conversation and posts each input line through send.
// A poller prints messages as they arrive until input ends or ctx is done.
func (a *app) converse(ctx context.Context, me *store.User, title string, fetch poller.FetchFunc, send func(context.Context, string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	fmt.Fprintln(a.out)
	cyan.Fprintf(a.out, "  %s\n", title)
	gray.Fprintln(a.out, "  Type a message and press Enter. Ctrl+D to leave.")
	fmt.Fprintln(a.out)

	printer := newMessagePrinter(a.out, me.ID)
	p := poller.New(fetch, a.cfg.Chat.PollInterval, printer.print, poller.WithLogger(a.logger))
	if err := p.Poll(ctx); err != nil {
		return err
	}
	watching := make(chan struct{})
	go func() {
		defer close(watching)
		p.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-watching
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := a.readLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case <-readErr:
			return nil
		case line := <-lines:
			if line == "" {
				continue
			}
			if err := send(ctx, line); err != nil {
				if !chat.IsUserError(err) {
					return err
				}
				a.reportError(err)
				continue
			}
			if err := p.Poll(ctx); err != nil {
				a.logger.Warn("refresh after send failed", "error", err)
			}
		}
	}
}

func (a *app) cmdWatch(ctx context.Context, args []string) error {
	if len(args) != 2 || (args[0] != "dm" && args[0] != "group") {
		return usageError("watch dm <email> | watch group <name>")
	}

	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	var title string
	var fetch poller.FetchFunc
	switch args[0] {
	case "dm":
		peer, err := a.directPeer(ctx, me, args[1])
		if err != nil {
			return err
		}
		title = "Watching chat with " + peer.Name
		fetch = func(ctx context.Context) ([]*store.Message, error) {
			return a.svc.DirectHistory(ctx, me.Email, peer.Email, 0)
		}
	case "group":
		g, err := a.memberGroup(ctx, me, args[1])
		if err != nil {
			return err
		}
		title = "Watching " + g.Name
		fetch = func(ctx context.Context) ([]*store.Message, error) {
			return a.svc.GroupHistory(ctx, g.Name, 0)
		}
	}

	fmt.Fprintln(a.out)
	color.New(color.FgCyan).Fprintf(a.out, "  %s", title)
	color.New(color.FgHiBlack).Fprintf(a.out, " (every %s, Ctrl+C to stop)\n\n", a.cfg.Chat.PollInterval)

	printer := newMessagePrinter(a.out, me.ID)
	p := poller.New(fetch, a.cfg.Chat.PollInterval, printer.print, poller.WithLogger(a.logger))
	return p.Run(ctx)
}

// limitFlag reads --limit; absent means the configured default.
func limitFlag(parsed *cmdArgs) (int, error) {
	raw, ok := parsed.values["limit"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, usageError("--limit must be a positive number, got %q", raw)
	}
	return n, nil
}
