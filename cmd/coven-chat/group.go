// ABOUTME: Group chat commands: listing, membership, messaging, and transcripts
// ABOUTME: Creator-only actions are enforced by the chat service and reported here

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/store"
	"github.com/2389/coven-chat/internal/transcript"
)

const groupUsage = "group create|open|leave|members|add|kick|rename|delete|say|history|export <name> ..."

// cmdGroups lists the groups the user created and joined, or every group with --all.
func (a *app) cmdGroups(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, nil, []string{"all"})
	if err != nil {
		return err
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out)
	if parsed.bools["all"] {
		groups, err := a.svc.Groups(ctx)
		if err != nil {
			return err
		}
		mine, err := a.svc.ListUserGroups(ctx, me.Email)
		if err != nil {
			return err
		}
		joined := make(map[store.GroupID]bool, len(mine))
		for _, g := range mine {
			joined[g.ID] = true
		}

		color.New(color.FgCyan).Fprintln(a.out, "  All groups")
		if len(groups) == 0 {
			fmt.Fprintln(a.out, "  (none)")
		}
		for _, g := range groups {
			mark := " "
			if joined[g.ID] {
				mark = "*"
			}
			fmt.Fprintf(a.out, "  %s %s\n", mark, g.Name)
		}
		fmt.Fprintln(a.out)
		return nil
	}

	created, err := a.svc.ListCreatedGroups(ctx, me.Email)
	if err != nil {
		return err
	}
	joined, err := a.svc.ListJoinedGroups(ctx, me.Email)
	if err != nil {
		return err
	}
	a.printSummaries("Created by you", created)
	a.printSummaries("Joined", joined)
	return nil
}

func (a *app) cmdGroup(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError(groupUsage)
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "create":
		return a.groupCreate(ctx, rest)
	case "open":
		return a.groupOpen(ctx, rest)
	case "leave":
		return a.groupLeave(ctx, rest)
	case "members":
		return a.groupMembers(ctx, rest)
	case "add":
		return a.groupAdd(ctx, rest)
	case "kick":
		return a.groupKick(ctx, rest)
	case "rename":
		return a.groupRename(ctx, rest)
	case "delete":
		return a.groupDelete(ctx, rest)
	case "say":
		return a.groupSay(ctx, rest)
	case "history":
		return a.groupHistory(ctx, rest)
	case "export":
		return a.groupExport(ctx, rest)
	default:
		return usageError(groupUsage)
	}
}

func (a *app) groupCreate(ctx context.Context, args []string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	g, created, err := a.svc.CreateOrGetGroup(ctx, args[0], me.Email)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(a.out, "Group %q already exists. Open it with: coven-chat group open %q\n", g.Name, g.Name)
		return nil
	}
	color.New(color.FgGreen).Fprintf(a.out, "Created group %q.\n", g.Name)
	return nil
}

// groupOpen joins the group when needed, then runs the interactive chat.
func (a *app) groupOpen(ctx context.Context, args []string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	g, err := a.svc.Group(ctx, args[0])
	if err != nil {
		return explain(err, store.ErrNotFound, "There is no group named %q. Create it with: coven-chat group create %q", args[0], args[0])
	}

	joined, err := a.svc.EnterGroup(ctx, me, g.ID)
	if err != nil {
		return err
	}
	if joined {
		color.New(color.FgGreen).Fprintf(a.out, "You joined %q.\n", g.Name)
	}

	fetch := func(ctx context.Context) ([]*store.Message, error) {
		return a.svc.GroupHistory(ctx, g.Name, 0)
	}
	send := func(ctx context.Context, content string) error {
		_, err := a.svc.SendToGroup(ctx, me.Email, g.Name, content, store.MessageTypeMessage)
		return err
	}
	return a.converse(ctx, me, g.Name, fetch, send)
}

func (a *app) groupLeave(ctx context.Context, args []string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	err = a.svc.LeaveGroup(ctx, me, args[0])
	if err != nil {
		return explain(err, store.ErrNotFound, "You are not in a group named %q.", args[0])
	}
	fmt.Fprintf(a.out, "You left %q.\n", args[0])
	return nil
}

func (a *app) groupMembers(ctx context.Context, args []string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	g, err := a.memberGroup(ctx, me, args[0])
	if err != nil {
		return err
	}

	members, err := a.svc.ListGroupMembers(ctx, g.Name)
	if err != nil {
		return err
	}
	var adminID store.UserID
	admin, err := a.svc.GroupAdmin(ctx, g.ID)
	switch {
	case err == nil:
		adminID = admin.ID
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	a.printUsers(fmt.Sprintf("Members of %s (%d)", g.Name, len(members)), members, adminID)
	return nil
}

// groupAdd lets any member bring another registered user into the group.
func (a *app) groupAdd(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("group add <name> <email>")
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	g, err := a.memberGroup(ctx, me, args[0])
	if err != nil {
		return err
	}

	invitee, err := a.svc.AddMember(ctx, me, args[1], g.Name)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return err
	case errors.Is(err, chat.ErrForbidden):
		return explain(err, chat.ErrForbidden, "You are not a member of %q.", g.Name)
	case err != nil:
		return explain(err, store.ErrNotFound, "No user is registered with %s.", args[1])
	}
	color.New(color.FgGreen).Fprintf(a.out, "Added %s to %q.\n", invitee.Name, g.Name)
	return nil
}

func (a *app) groupKick(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("group kick <name> <email>")
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	err = a.svc.KickMember(ctx, me, args[1], args[0])
	if err != nil {
		return explain(err, store.ErrNotFound, "Either %q does not exist or %s is not in it.", args[0], args[1])
	}
	fmt.Fprintf(a.out, "Removed %s from %q.\n", args[1], args[0])
	return nil
}

func (a *app) groupRename(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("group rename <old-name> <new-name>")
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}

	err = a.svc.RenameGroupAs(ctx, me, args[0], args[1])
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		return &userError{msg: fmt.Sprintf("A group named %q already exists.", args[1]), err: err}
	case err != nil:
		return explain(err, store.ErrNotFound, "There is no group named %q.", args[0])
	}
	fmt.Fprintf(a.out, "Renamed %q to %q.\n", args[0], args[1])
	return nil
}

func (a *app) groupDelete(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, nil, []string{"yes"})
	if err != nil {
		return err
	}
	name := parsed.arg(0)
	if name == "" {
		return usageError("group delete <name> [--yes]")
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	g, err := a.svc.Group(ctx, name)
	if err != nil {
		return explain(err, store.ErrNotFound, "There is no group named %q.", name)
	}
	notCreator := func(err error) error {
		return explain(err, chat.ErrForbidden, "Only the creator of %q can delete it.", g.Name)
	}
	// Checked before prompting so a non-creator is never asked to confirm.
	if g.CreatedBy != me.ID {
		return notCreator(fmt.Errorf("delete %s: %w", g.Name, chat.ErrForbidden))
	}

	if !parsed.bools["yes"] && !a.confirm(fmt.Sprintf("Delete %q and all of its messages?", g.Name)) {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}
	if err := a.svc.DeleteGroupAs(ctx, me, g.ID); err != nil {
		return notCreator(err)
	}
	fmt.Fprintf(a.out, "Deleted %q.\n", g.Name)
	return nil
}

func (a *app) groupSay(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, nil, nil)
	if err != nil {
		return err
	}
	content := parsed.rest(1)
	if content == "" {
		return usageError("group say <name> <message>")
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	g, err := a.memberGroup(ctx, me, parsed.arg(0))
	if err != nil {
		return err
	}

	if _, err := a.svc.SendToGroup(ctx, me.Email, g.Name, content, store.MessageTypeMessage); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(a.out, "Sent to %s.\n", g.Name)
	return nil
}

func (a *app) groupHistory(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, []string{"limit"}, nil)
	if err != nil {
		return err
	}
	limit, err := limitFlag(parsed)
	if err != nil {
		return err
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	g, err := a.memberGroup(ctx, me, parsed.arg(0))
	if err != nil {
		return err
	}

	msgs, err := a.svc.GroupHistory(ctx, g.Name, limit)
	if err != nil {
		return err
	}
	a.printHistory(g.Name, msgs, me.ID)
	fmt.Fprintln(a.out)
	return nil
}

// groupExport writes the group's history as Markdown or HTML, to stdout or --out.
func (a *app) groupExport(ctx context.Context, args []string) error {
	parsed, err := parseArgs(args, []string{"format", "out", "limit", "theme"}, nil)
	if err != nil {
		return err
	}
	format, err := transcript.ParseFormat(parsed.values["format"])
	if err != nil {
		return &userError{msg: err.Error(), err: store.ErrInvalidInput}
	}
	limit, err := limitFlag(parsed)
	if err != nil {
		return err
	}
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	g, err := a.memberGroup(ctx, me, parsed.arg(0))
	if err != nil {
		return err
	}

	msgs, err := a.svc.GroupHistory(ctx, g.Name, limit)
	if err != nil {
		return err
	}

	opts := transcript.Options{Location: time.Local, Theme: parsed.values["theme"]}
	out := parsed.values["out"]
	if out == "" {
		return transcript.Render(a.out, g.Name, msgs, format, opts)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating transcript file: %w", err)
	}
	if err := transcript.Render(f, g.Name, msgs, format, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing transcript file: %w", err)
	}
	fmt.Fprintf(a.out, "Wrote %d messages to %s\n", len(msgs), out)
	return nil
}
