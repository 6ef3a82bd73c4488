package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"wedding-site/internal/export"
	"wedding-site/internal/guests"
	"wedding-site/internal/models"
)

func viewDetails(_ context.Context, con *console) error {
	cfg := con.c.Config()
	fmt.Printf("\n💍 %s & %s\n", cfg.BrideName, cfg.GroomName)
	fmt.Printf("Date: %s %s\n", cfg.WeddingDate, cfg.WeddingTime)
	fmt.Printf("Location: %s\n", cfg.Location)
	if cfg.RSVPDeadline != "" {
		fmt.Printf("RSVP by: %s\n", cfg.RSVPDeadline)
	}
	for _, s := range cfg.Story {
		fmt.Printf("\n%s\n%s\n", s.Title, s.Text)
	}
	if len(cfg.Guestbook) > 0 {
		fmt.Printf("\n📖 Guestbook (%d messages):\n", len(cfg.Guestbook))
		fmt.Println(strings.Repeat("-", 60))
		for i, m := range cfg.Guestbook {
			fmt.Printf("%d. %s: %s\n", i+1, m.Name, m.Message)
			for emoji, n := range m.Reactions {
				fmt.Printf("   %s %d\n", emoji, n)
			}
			if m.Reply != "" {
				fmt.Printf("   ↳ %s\n", m.Reply)
			}
		}
	}
	if st := con.c.State(); st.SyncDisabled {
		fmt.Println("\n(showing last known content, live sync is off)")
	}
	return nil
}

func readForm(con *console, prefill guests.Form) guests.Form {
	form := prefill
	if name := con.prompt(fmt.Sprintf("Enter name [%s]: ", prefill.Name)); name != "" {
		form.Name = name
	}
	if email := con.prompt(fmt.Sprintf("Enter email [%s]: ", prefill.Email)); email != "" {
		form.Email = email
	}
	switch strings.ToLower(con.prompt("Attending? (yes/no/undecided) [yes]: ")) {
	case "no", "n":
		form.Attending = models.AttendingNo
	case "undecided", "u":
		form.Attending = models.AttendingUndecided
	default:
		form.Attending = models.AttendingYes
	}
	form.Guests = 1
	if n, err := strconv.Atoi(con.prompt("Number of guests including you [1]: ")); err == nil && n > 1 {
		form.Guests = n
	}
	form.ExtraGuestNames = nil
	for i := 2; i <= form.Guests; i++ {
		form.ExtraGuestNames = append(form.ExtraGuestNames, con.prompt(fmt.Sprintf("Name of guest %d: ", i)))
	}
	form.Message = con.prompt("Message (optional): ")
	return form
}

func submitRSVP(ctx context.Context, con *console) error {
	_, err := con.c.SubmitRSVP(ctx, readForm(con, guests.Form{}))
	return err
}

func postGuestbook(ctx context.Context, con *console) error {
	name := con.prompt("Your name (leave empty to stay anonymous): ")
	message := con.prompt("Message: ")
	_, err := con.c.PostGuestbook(ctx, name, message)
	return err
}

func pickMessage(con *console) (models.GuestbookMessage, bool) {
	book := con.c.Config().Guestbook
	if len(book) == 0 {
		fmt.Println("\nThe guestbook is empty.")
		return models.GuestbookMessage{}, false
	}
	for i, m := range book {
		fmt.Printf("  %d. %s: %s\n", i+1, m.Name, m.Message)
	}
	i, err := strconv.Atoi(con.prompt("Select message: "))
	if err != nil || i < 1 || i > len(book) {
		fmt.Println("Invalid choice.")
		return models.GuestbookMessage{}, false
	}
	return book[i-1], true
}

func react(ctx context.Context, con *console) error {
	m, ok := pickMessage(con)
	if !ok {
		return nil
	}
	emoji := con.prompt("Emoji [❤️]: ")
	if emoji == "" {
		emoji = "❤️"
	}
	return con.c.React(ctx, m.ID, emoji)
}

func reply(ctx context.Context, con *console) error {
	m, ok := pickMessage(con)
	if !ok {
		return nil
	}
	return con.c.Reply(ctx, m.ID, con.prompt("Reply: "))
}

func login(ctx context.Context, con *console) error {
	if err := con.gate.Unlock(ctx, con.prompt("Admin password: ")); err != nil {
		fmt.Printf("❌ %s\n", con.gate.Error())
		return nil
	}
	fmt.Println("✅ Admin mode unlocked")
	return nil
}

func logout(_ context.Context, con *console) error {
	con.gate.Lock()
	fmt.Println("Logged out.")
	return nil
}

func printGuests(list []models.GuestEntry) {
	fmt.Println(strings.Repeat("-", 60))
	for i, g := range list {
		fmt.Printf("%d. %s\n", i+1, export.PartyName(g))
		if g.Email != "" {
			fmt.Printf("   Email: %s\n", g.Email)
		}
		fmt.Printf("   Attending: %s, Guests: %s, Status: %s\n", g.Attending, g.Guests, statusLabel(g.AdminStatus))
		if len(g.RejectedIndividuals) > 0 {
			fmt.Printf("   Rejected: %s\n", strings.Join(g.RejectedIndividuals, ", "))
		}
		if g.Message != "" {
			fmt.Printf("   Message: %s\n", g.Message)
		}
		if g.Timestamp != "" {
			fmt.Printf("   RSVP Date: %s\n", g.Timestamp)
		}
	}
	fmt.Println(strings.Repeat("-", 60))
}

func statusLabel(s models.AdminStatus) string {
	if s == models.AdminPending {
		return "pending"
	}
	return string(s)
}

func viewAllGuests(_ context.Context, con *console) error {
	list := con.c.Config().GuestList
	if len(list) == 0 {
		fmt.Println("\nNo guests found.")
		return nil
	}
	s := con.c.Stats()
	fmt.Printf("\n📋 All Guests (%d submissions, %d heads):\n", s.Submissions, s.TotalHeads)
	fmt.Printf("Approved %d · Pending %d · Declined %d · Undecided %d · Rejected %d\n",
		s.ApprovedHeads, s.PendingHeads, s.DeclinedHeads, s.UndecidedHeads, s.RejectedHeads)
	printGuests(list)
	return nil
}

func viewGuestsByStatus(_ context.Context, con *console) error {
	fmt.Println("\nSelect status:")
	fmt.Println("  1. Pending")
	fmt.Println("  2. Approved")
	fmt.Println("  3. Rejected")
	status, ok := map[string]models.AdminStatus{
		"1": models.AdminPending,
		"2": models.AdminApproved,
		"3": models.AdminRejected,
	}[con.prompt("Enter choice (1-3): ")]
	if !ok {
		fmt.Println("Invalid choice.")
		return nil
	}

	var list []models.GuestEntry
	for _, g := range con.c.Config().GuestList {
		if g.AdminStatus == status {
			list = append(list, g)
		}
	}
	if len(list) == 0 {
		fmt.Printf("\nNo guests with status '%s'.\n", statusLabel(status))
		return nil
	}
	fmt.Printf("\n📋 Guests with status '%s' (%d total):\n", statusLabel(status), len(list))
	printGuests(list)
	return nil
}

func pickGuest(con *console) (models.GuestEntry, bool) {
	list := con.c.Config().GuestList
	if len(list) == 0 {
		fmt.Println("\nNo guests found.")
		return models.GuestEntry{}, false
	}
	for i, g := range list {
		fmt.Printf("  %d. %s\n", i+1, export.PartyName(g))
	}
	i, err := strconv.Atoi(con.prompt("Select guest: "))
	if err != nil || i < 1 || i > len(list) {
		fmt.Println("Invalid choice.")
		return models.GuestEntry{}, false
	}
	return list[i-1], true
}

func setStatus(ctx context.Context, con *console) error {
	g, ok := pickGuest(con)
	if !ok {
		return nil
	}
	status, ok := map[string]models.AdminStatus{
		"1": models.AdminApproved,
		"2": models.AdminRejected,
		"3": models.AdminUndecided,
	}[con.prompt("1. Approve  2. Reject  3. Undecided: ")]
	if !ok {
		fmt.Println("Invalid choice.")
		return nil
	}
	return con.c.SetAdminStatus(ctx, g, status)
}

func rejectOrRestore(ctx context.Context, con *console) error {
	g, ok := pickGuest(con)
	if !ok {
		return nil
	}
	for _, n := range g.NamedExtras() {
		fmt.Printf("  - %s\n", n)
	}
	for _, n := range g.RejectedIndividuals {
		fmt.Printf("  - %s (rejected)\n", n)
	}
	name := con.prompt("Name: ")
	for _, n := range g.RejectedIndividuals {
		if n == name {
			return con.c.RestoreIndividual(ctx, g, name)
		}
	}
	return con.c.RejectIndividual(ctx, g, name)
}

func deleteGuest(ctx context.Context, con *console) error {
	g, ok := pickGuest(con)
	if !ok {
		return nil
	}
	return con.c.DeleteGuest(ctx, g, con.confirm(fmt.Sprintf("Delete %s permanently?", g.Name)))
}

func addOrEditGuest(_ context.Context, con *console) error {
	if !con.confirm("Edit an existing guest?") {
		return con.c.AddOrUpdateGuest(readForm(con, guests.Form{}), "")
	}
	g, ok := pickGuest(con)
	if !ok {
		return nil
	}
	if err := con.c.AddOrUpdateGuest(readForm(con, guests.FormOf(g)), g.Timestamp); err != nil {
		return err
	}
	fmt.Println("Updated locally. Use \"Save changes\" to publish.")
	return nil
}

func editDetails(_ context.Context, con *console) error {
	cfg := con.c.Config()
	bride := con.prompt(fmt.Sprintf("Bride name [%s]: ", cfg.BrideName))
	groom := con.prompt(fmt.Sprintf("Groom name [%s]: ", cfg.GroomName))
	date := con.prompt(fmt.Sprintf("Wedding date [%s]: ", cfg.WeddingDate))
	location := con.prompt(fmt.Sprintf("Location [%s]: ", cfg.Location))
	storyTitle := con.prompt("New story entry title (optional): ")
	var storyText string
	if storyTitle != "" {
		storyText = con.prompt("Story text: ")
	}

	return con.c.Edit(func(cfg *models.Configuration) {
		setIf(&cfg.BrideName, bride)
		setIf(&cfg.GroomName, groom)
		setIf(&cfg.WeddingDate, date)
		setIf(&cfg.Location, location)
		if storyTitle != "" {
			cfg.Story = append(cfg.Story, models.StoryEntry{Title: storyTitle, Text: storyText})
		}
	})
}

func setIf(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func save(ctx context.Context, con *console) error {
	return con.c.Save(ctx)
}

func broadcastUpdate(ctx context.Context, con *console) error {
	_, err := con.c.Broadcast(ctx)
	return err
}

func exportCSV(ctx context.Context, con *console) error {
	data, err := con.remote.ExportCSV(ctx)
	if err != nil {
		return err
	}
	path := con.prompt("Output file [guests.csv]: ")
	if path == "" {
		path = "guests.csv"
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("✅ Exported to %s\n", path)
	return nil
}

func reset(ctx context.Context, con *console) error {
	return con.c.Reset(ctx, con.confirm("Reset the whole site to defaults?"))
}
