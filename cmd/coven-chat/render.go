// ABOUTME: Terminal rendering of chat history and listings
// ABOUTME: Own messages, other senders, and system notices get distinct colors

package main

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/store"
)

// messagePrinter writes messages for one viewer. It is safe for the poller
// and the input loop to share.
type messagePrinter struct {
	mu sync.Mutex
	w  io.Writer
	me store.UserID
}

func newMessagePrinter(w io.Writer, me store.UserID) *messagePrinter {
	return &messagePrinter{w: w, me: me}
}

func (p *messagePrinter) print(msgs []*store.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gray := color.New(color.FgHiBlack)
	self := color.New(color.FgCyan, color.Bold)
	other := color.New(color.FgGreen, color.Bold)
	notice := color.New(color.FgYellow, color.Italic)

	for _, m := range msgs {
		gray.Fprintf(p.w, "[%s] ", m.Timestamp.Local().Format("Jan 02 15:04"))
		switch {
		case m.IsSystem():
			notice.Fprintln(p.w, m.Content)
		case m.SenderID == p.me:
			self.Fprint(p.w, "You")
			fmt.Fprintf(p.w, ": %s\n", m.Content)
		default:
			other.Fprint(p.w, m.SenderName)
			fmt.Fprintf(p.w, ": %s\n", m.Content)
		}
	}
}

// printHistory writes a heading and the messages, or a placeholder when empty.
func (a *app) printHistory(title string, msgs []*store.Message, me store.UserID) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(a.out)
	cyan.Fprintf(a.out, "  %s\n", title)
	fmt.Fprintln(a.out)

	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "  (no messages yet)")
		return
	}
	newMessagePrinter(a.out, me).print(msgs)
}

func (a *app) printUsers(title string, users []*store.User, adminID store.UserID) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(a.out)
	cyan.Fprintf(a.out, "  %s\n", title)
	fmt.Fprintln(a.out)

	if len(users) == 0 {
		fmt.Fprintln(a.out, "  (nobody)")
		fmt.Fprintln(a.out)
		return
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tEMAIL\tROLE")
	fmt.Fprintln(w, "  ----\t-----\t----")
	for _, u := range users {
		role := ""
		if adminID != 0 && u.ID == adminID {
			role = "creator"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", u.Name, u.Email, role)
	}
	w.Flush()
	fmt.Fprintln(a.out)
}

func (a *app) printSummaries(title string, groups []store.GroupSummary) {
	cyan := color.New(color.FgCyan)
	cyan.Fprintf(a.out, "  %s\n", title)

	if len(groups) == 0 {
		fmt.Fprintln(a.out, "  (none)")
		fmt.Fprintln(a.out)
		return
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tMEMBERS")
	fmt.Fprintln(w, "  ----\t-------")
	for _, g := range groups {
		fmt.Fprintf(w, "  %s\t%d\n", g.Name, g.MemberCount)
	}
	w.Flush()
	fmt.Fprintln(a.out)
}
