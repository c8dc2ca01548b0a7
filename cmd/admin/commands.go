package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"tourdesk/pkg/admin"
	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/model"
)

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in and store the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, EnvVars: []string{"TOURDESK_USERNAME"}},
			&cli.StringFlag{Name: "password", EnvVars: []string{"TOURDESK_PASSWORD"}, Usage: "prompted for when not set"},
		},
		Action: func(c *cli.Context) error {
			con, err := newConsole(c)
			if err != nil {
				return err
			}
			defer con.close()

			username := c.String("username")
			if username == "" {
				if username, err = con.prompt("Username: "); err != nil {
					return err
				}
			}
			password := c.String("password")
			if password == "" {
				if password, err = con.prompt("Password: "); err != nil {
					return err
				}
			}

			user, err := con.session.Login(c.Context, username, password)
			if err != nil {
				return err
			}
			if !user.CanManageBookings() {
				con.session.Logout(c.Context)
				return fmt.Errorf("%s is not a staff account", user.Username)
			}
			fmt.Fprintf(con.out, "Signed in as %s\n", user.Username)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session, even when the server is unreachable",
		Action: func(c *cli.Context) error {
			con, err := newConsole(c)
			if err != nil {
				return err
			}
			defer con.close()

			if err := con.session.Restore(c.Context); err != nil {
				fmt.Fprintln(c.App.ErrWriter, "warning:", describe(err))
			}
			con.session.Logout(c.Context)
			fmt.Fprintln(con.out, "Signed out")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user",
		Action: signedIn(func(_ context.Context, con *console, _ *cli.Context) error {
			user := con.session.User()
			role := "staff"
			if user.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(con.out, "%s <%s> (%s, %s)\n", user.Username, user.Email, role, con.session.State())
			return nil
		}),
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "show pending and confirmed bookings",
		Action: signedIn(func(ctx context.Context, con *console, _ *cli.Context) error {
			board, err := con.bookings.Load(ctx)
			if err != nil {
				return err
			}
			printBoard(con.out, board)
			return nil
		}),
	}
}

// watchCommand keeps the board on screen for a long-lived terminal, with the
// session refreshed in the background instead of on the first 401.
func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "reload the booking board periodically until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "every", Value: 30 * time.Second, Usage: "reload interval"},
		},
		Action: signedIn(func(ctx context.Context, con *console, c *cli.Context) error {
			every := c.Duration("every")
			if every <= 0 {
				return errors.New("--every must be positive")
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			con.session.StartAutoRefresh(ctx)
			return watchBoard(ctx, con, every)
		}),
	}
}

func watchBoard(ctx context.Context, con *console, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		board, err := con.bookings.Load(ctx)
		switch {
		case apperrors.HasCode(err, apperrors.CodeAuthExpired):
			return err
		case err == nil:
			fmt.Fprintf(con.out, "\n-- %s --\n", time.Now().Format("15:04:05"))
			printBoard(con.out, board)
		case ctx.Err() == nil:
			fmt.Fprintln(con.out, "warning: could not load bookings:", describe(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show booking counts",
		Action: signedIn(func(ctx context.Context, con *console, _ *cli.Context) error {
			stats, err := con.bookings.Stats(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(con.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Total\t%d\n", stats.Total)
			fmt.Fprintf(w, "Pending\t%d\n", stats.Pending)
			fmt.Fprintf(w, "Confirmed\t%d\n", stats.Confirmed)
			fmt.Fprintf(w, "Cancelled\t%d\n", stats.Cancelled)
			fmt.Fprintf(w, "This month\t%d\n", stats.ThisMonth)
			return w.Flush()
		}),
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "wait until the auth and bookings services report healthy",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "wait", Value: 5 * time.Second},
		},
		Action: func(c *cli.Context) error {
			con, err := newConsole(c)
			if err != nil {
				return err
			}
			defer con.close()

			names := make([]string, 0, len(con.services))
			for name := range con.services {
				names = append(names, name)
			}
			sort.Strings(names)

			var failed []string
			for _, name := range names {
				if err := con.services[name].WaitForHealthy(c.Context, c.Duration("wait")); err != nil {
					fmt.Fprintf(con.out, "%-9s %v\n", name, err)
					failed = append(failed, name)
					continue
				}
				fmt.Fprintf(con.out, "%-9s ok\n", name)
			}
			if len(failed) > 0 {
				return fmt.Errorf("unhealthy: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "find a booking the way a customer does, by reference and email",
		ArgsUsage: "REFERENCE EMAIL",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("usage: lookup REFERENCE EMAIL")
			}
			con, err := newConsole(c)
			if err != nil {
				return err
			}
			defer con.close()

			booking, err := con.public.Check(c.Context, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			fmt.Fprintf(con.out, "%s is %s\n", booking.BookingReference, booking.Status)
			printBookings(con.out, []*model.Booking{booking})
			return nil
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "record a booking taken over the phone; it starts as pending",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "phone", Required: true},
			&cli.StringFlag{Name: "tour", Required: true, Usage: "tour reference"},
			&cli.IntFlag{Name: "people", Value: 1},
			&cli.StringFlag{Name: "date", Required: true, Usage: "preferred date, YYYY-MM-DD"},
			&cli.Float64Flag{Name: "quote", Usage: "quoted total"},
			&cli.StringFlag{Name: "requirements"},
		},
		Action: signedIn(func(ctx context.Context, con *console, c *cli.Context) error {
			booking, err := con.public.Create(ctx, &model.BookingRequest{
				Customer: model.Customer{
					Name:  c.String("name"),
					Email: c.String("email"),
					Phone: c.String("phone"),
				},
				TourReference:       c.String("tour"),
				NumberOfPeople:      c.Int("people"),
				PreferredDate:       c.String("date"),
				QuotedTotal:         c.Float64("quote"),
				SpecialRequirements: c.String("requirements"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(con.out, "Recorded %s (id %s)\n", booking.BookingReference, booking.ID)
			con.reload(ctx)
			return nil
		}),
	}
}

func confirmationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "date", Usage: "confirmed date, YYYY-MM-DD"},
		&cli.StringFlag{Name: "time", Usage: "confirmed time, HH:MM"},
		&cli.StringFlag{Name: "meeting-point"},
		&cli.StringFlag{Name: "notes"},
		&cli.Float64Flag{Name: "price", Usage: "final price (defaults to the quoted total)"},
	}
}

func confirmCommand() *cli.Command {
	return &cli.Command{
		Name:      "confirm",
		Usage:     "confirm a booking and notify the customer",
		ArgsUsage: "ID",
		Flags:     confirmationFlags(),
		Action: signedIn(func(ctx context.Context, con *console, c *cli.Context) error {
			id, err := bookingID(c)
			if err != nil {
				return err
			}

			details := model.ConfirmationDetails{
				ConfirmedDate:   c.String("date"),
				ConfirmedTime:   c.String("time"),
				MeetingPoint:    c.String("meeting-point"),
				AdditionalNotes: c.String("notes"),
			}
			if c.IsSet("price") {
				price := c.Float64("price")
				details.FinalPrice = &price
			}

			booking, err := con.bookings.Confirm(ctx, id, details)
			if err != nil {
				return err
			}
			fmt.Fprintf(con.out, "Confirmed %s for %s\n", booking.BookingReference, booking.Confirmation.ConfirmedDate)
			con.reload(ctx)
			return nil
		}),
	}
}

func updateCommand() *cli.Command {
	flags := append(confirmationFlags(),
		&cli.StringFlag{Name: "status"},
		&cli.StringFlag{Name: "preferred-date"},
		&cli.IntFlag{Name: "people"},
		&cli.StringFlag{Name: "requirements"},
	)

	return &cli.Command{
		Name:      "update",
		Usage:     "edit booking fields without notifying anyone",
		ArgsUsage: "ID",
		Flags:     flags,
		Action: signedIn(func(ctx context.Context, con *console, c *cli.Context) error {
			id, err := bookingID(c)
			if err != nil {
				return err
			}

			var update model.BookingUpdate
			if c.IsSet("status") {
				status, err := model.ParseStatus(strings.ToLower(c.String("status")))
				if err != nil {
					return err
				}
				update.Status = &status
			}
			update.PreferredDate = optionalString(c, "preferred-date")
			update.SpecialRequirements = optionalString(c, "requirements")
			update.ConfirmedDate = optionalString(c, "date")
			update.ConfirmedTime = optionalString(c, "time")
			update.MeetingPoint = optionalString(c, "meeting-point")
			update.AdditionalNotes = optionalString(c, "notes")
			if c.IsSet("people") {
				people := c.Int("people")
				update.NumberOfPeople = &people
			}
			if c.IsSet("price") {
				price := c.Float64("price")
				update.FinalPrice = &price
			}

			booking, err := con.bookings.Update(ctx, id, update)
			if err != nil {
				return err
			}
			fmt.Fprintf(con.out, "Updated %s (%s)\n", booking.BookingReference, booking.Status)
			con.reload(ctx)
			return nil
		}),
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "set a booking's status: pending, confirmed or cancelled",
		ArgsUsage: "ID STATUS",
		Action: signedIn(func(ctx context.Context, con *console, c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("usage: status ID STATUS")
			}
			status, err := model.ParseStatus(strings.ToLower(c.Args().Get(1)))
			if err != nil {
				return err
			}
			booking, err := con.bookings.ChangeStatus(ctx, c.Args().Get(0), status)
			if err != nil {
				return err
			}
			fmt.Fprintf(con.out, "%s is now %s\n", booking.BookingReference, booking.Status)
			con.reload(ctx)
			return nil
		}),
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "permanently delete a booking",
		ArgsUsage: "ID",
		Action: signedIn(func(ctx context.Context, con *console, c *cli.Context) error {
			id, err := bookingID(c)
			if err != nil {
				return err
			}

			booking, err := con.bookings.Get(ctx, id)
			if err != nil {
				return err
			}
			ticket := con.bookings.RequestRemoval(id, booking.BookingReference)

			typed, err := con.prompt(fmt.Sprintf(
				"This permanently deletes %s (%s). Type the reference within %s to confirm: ",
				booking.BookingReference, booking.Customer.Name, time.Until(ticket.ExpiresAt).Round(time.Second),
			))
			if err != nil {
				return err
			}
			if !ticket.Matches(typed) {
				fmt.Fprintln(con.out, "Reference did not match, nothing deleted")
				return nil
			}

			if err := con.bookings.Remove(ctx, ticket); err != nil {
				return err
			}
			fmt.Fprintf(con.out, "Deleted %s\n", booking.BookingReference)
			con.reload(ctx)
			return nil
		}),
	}
}

func bookingID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("usage: %s ID", c.Command.Name)
	}
	return c.Args().First(), nil
}

func optionalString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func printBoard(out io.Writer, board *admin.Board) {
	fmt.Fprintf(out, "Pending (%d)\n", board.PendingTotal)
	printBookings(out, board.Pending)
	fmt.Fprintf(out, "\nConfirmed (%d)\n", board.ConfirmedTotal)
	printBookings(out, board.Confirmed)
}

func printBookings(out io.Writer, bookings []*model.Booking) {
	if len(bookings) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tREFERENCE\tCUSTOMER\tTOUR\tPEOPLE\tDATE\tPRICE")
	for _, b := range bookings {
		date, price := b.PreferredDate, b.QuotedTotal
		if b.Status == model.StatusConfirmed && b.Confirmation != nil {
			date = b.Confirmation.ConfirmedDate
			if b.Confirmation.ConfirmedTime != "" {
				date += " " + b.Confirmation.ConfirmedTime
			}
			price = b.Confirmation.FinalPrice
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%.2f\n",
			b.ID, b.BookingReference, b.Customer.Name, b.TourReference, b.NumberOfPeople, date, price)
	}
	_ = w.Flush()
}
