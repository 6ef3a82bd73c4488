package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"wedding-site/internal/broadcast"
	"wedding-site/internal/client"
	"wedding-site/internal/config"
	"wedding-site/internal/logger"
	"wedding-site/internal/session"
)

func main() {
	fmt.Println("🎉 Wedding Site Console")
	fmt.Println("=======================")

	cfg, err := config.NewConsole()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stderr, "weddingctl", os.Getenv("WEDDINGCTL_LOG_LEVEL"))

	var gate *session.Gate
	remote := client.NewHTTPRemote(cfg.ServerURL,
		client.WithToken(func() string { return gate.Token() }),
		client.WithHTTPLogger(log),
	)
	gate = session.NewGate(remote, cfg.AdminEmail)

	c := client.New(remote,
		client.WithPrivilege(gate),
		client.WithTokenStore(broadcast.NewFileTokenStore(cfg.TokenFile)),
		client.WithReloadDelay(cfg.ReloadDelay),
		client.WithRollback(cfg.Rollback),
		client.WithLogger(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := c.Run(ctx); err != nil {
			fmt.Printf("❌ Sync stopped: %v\n", err)
		}
	}()
	go printNotices(ctx, c)

	fmt.Printf("Connected to %s\n", cfg.ServerURL)

	done := make(chan struct{})
	go func() {
		defer close(done)
		startCLI(ctx, &console{c: c, gate: gate, remote: remote, scanner: bufio.NewScanner(os.Stdin)})
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	fmt.Println("\n\nGoodbye! 👋")
}

func printNotices(ctx context.Context, c *client.Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-c.Notices():
			switch n.Kind {
			case client.NoticeError:
				fmt.Printf("\n❌ %s\n", n.Message)
			case client.NoticeSuccess:
				fmt.Printf("\n✅ %s\n", n.Message)
			default:
				fmt.Printf("\nℹ️  %s\n", n.Message)
			}
		}
	}
}

type console struct {
	c       *client.Client
	gate    *session.Gate
	remote  *client.HTTPRemote
	scanner *bufio.Scanner
}

type command struct {
	label        string
	// admin commands are listed only while the gate is open, guest
	// commands only while it is closed.
	admin, guest bool
	run          func(ctx context.Context, con *console) error
}

var commands = []command{
	{label: "View wedding details", run: viewDetails},
	{label: "Submit RSVP", run: submitRSVP},
	{label: "Sign the guestbook", run: postGuestbook},
	{label: "React to a guestbook message", run: react},
	{label: "Admin login", guest: true, run: login},
	{label: "View all guests", admin: true, run: viewAllGuests},
	{label: "View guests by status", admin: true, run: viewGuestsByStatus},
	{label: "Set guest status", admin: true, run: setStatus},
	{label: "Reject or restore a party member", admin: true, run: rejectOrRestore},
	{label: "Delete guest", admin: true, run: deleteGuest},
	{label: "Add or edit guest", admin: true, run: addOrEditGuest},
	{label: "Edit wedding details", admin: true, run: editDetails},
	{label: "Reply to a guestbook message", admin: true, run: reply},
	{label: "Save changes", admin: true, run: save},
	{label: "Broadcast update to all viewers", admin: true, run: broadcastUpdate},
	{label: "Export guests to CSV", admin: true, run: exportCSV},
	{label: "Reset site to defaults", admin: true, run: reset},
	{label: "Logout", admin: true, run: logout},
}

func startCLI(ctx context.Context, con *console) {
	for {
		visible := visibleCommands(con.gate.IsOpen())
		fmt.Println("\nCommands:")
		for i, cmd := range visible {
			fmt.Printf("  %d. %s\n", i+1, cmd.label)
		}
		fmt.Printf("  %d. Exit\n", len(visible)+1)
		fmt.Printf("\nEnter command (1-%d): ", len(visible)+1)

		if !con.scanner.Scan() {
			return
		}
		choice, err := strconv.Atoi(strings.TrimSpace(con.scanner.Text()))
		switch {
		case err != nil || choice < 1 || choice > len(visible)+1:
			fmt.Println("Invalid command. Please try again.")
			continue
		case choice == len(visible)+1:
			fmt.Println("Exiting...")
			return
		}

		if err := visible[choice-1].run(ctx, con); err != nil {
			report(err)
		}
	}
}

func visibleCommands(admin bool) []command {
	var out []command
	for _, cmd := range commands {
		if (cmd.admin && !admin) || (cmd.guest && admin) {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func report(err error) {
	switch {
	case errors.Is(err, client.ErrNotPrivileged):
		fmt.Println("❌ Please log in as admin first.")
	case errors.Is(err, client.ErrConfirmationRequired):
		fmt.Println("Cancelled.")
	default:
		fmt.Printf("❌ Error: %v\n", err)
	}
}

// prompt prints label and returns the trimmed answer.
func (con *console) prompt(label string) string {
	fmt.Print(label)
	if !con.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(con.scanner.Text())
}

func (con *console) confirm(label string) bool {
	answer := strings.ToLower(con.prompt(label + " (y/N): "))
	return answer == "y" || answer == "yes"
}
