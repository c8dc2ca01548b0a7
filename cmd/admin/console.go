package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"tourdesk/pkg/admin"
	"tourdesk/pkg/client"
	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/session"
)

const redisKeyPrefix = "tourdesk:admin:"

type console struct {
	session  *session.Manager
	bookings *admin.Manager
	public   *client.BookingClient
	services map[string]*client.HttpClient
	out      io.Writer
	in       *bufio.Reader
	close    func()
}

func newConsole(c *cli.Context) (*console, error) {
	log := logger.New(logger.Config{
		Level:   c.String(flagLogLevel),
		Format:  logger.TEXT,
		Output:  os.Stderr,
		Service: "admin",
	})

	store, closeStore, err := tokenStore(c)
	if err != nil {
		return nil, err
	}

	authHTTP := client.NewHttpClient(c.String(flagAuthURL), c.Duration(flagTimeout))
	bookingsHTTP := client.NewHttpClient(c.String(flagBookingsURL), c.Duration(flagTimeout))

	errOut := c.App.ErrWriter
	sess := session.NewManager(client.NewAuthClient(authHTTP), log,
		session.WithStore(store),
		session.WithOnExpired(func() {
			fmt.Fprintln(errOut, "Session expired. Run `tourdesk-admin login` to sign in again.")
		}),
	)

	return &console{
		session:  sess,
		bookings: admin.NewManager(client.NewBookingClient(bookingsHTTP.WithAuthorizer(sess)), log),
		public:   client.NewBookingClient(bookingsHTTP),
		services: map[string]*client.HttpClient{"auth": authHTTP, "bookings": bookingsHTTP},
		out:      c.App.Writer,
		in:       bufio.NewReader(os.Stdin),
		close:    closeStore,
	}, nil
}

func tokenStore(c *cli.Context) (session.TokenStore, func(), error) {
	if addr := c.String(flagRedisAddr); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(c.Context).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("session store %s unreachable: %w", addr, err)
		}
		return session.NewRedisStore(rdb, redisKeyPrefix), func() { rdb.Close() }, nil
	}

	path := c.String(flagSessionFile)
	if path == "" {
		var err error
		if path, err = session.DefaultFilePath(); err != nil {
			return nil, nil, err
		}
	}
	return session.NewFileStore(path), func() {}, nil
}

type action func(ctx context.Context, con *console, c *cli.Context) error

// signedIn restores the stored session and requires a staff account before
// running fn.
func signedIn(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		con, err := newConsole(c)
		if err != nil {
			return err
		}
		defer con.close()

		if err := con.session.Restore(c.Context); err != nil {
			return err
		}
		user := con.session.User()
		if user == nil {
			return errors.New("not signed in, run `tourdesk-admin login` first")
		}
		if !user.CanManageBookings() {
			return fmt.Errorf("%s is not a staff account", user.Username)
		}
		return fn(c.Context, con, c)
	}
}

func (con *console) prompt(label string) (string, error) {
	fmt.Fprint(con.out, label)
	line, err := con.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// reload refetches both lists after a mutation and prints the totals.
func (con *console) reload(ctx context.Context) {
	board, err := con.bookings.Load(ctx)
	if err != nil {
		fmt.Fprintln(con.out, "warning: could not refresh bookings:", describe(err))
		return
	}
	fmt.Fprintf(con.out, "Pending: %d  Confirmed: %d\n", board.PendingTotal, board.ConfirmedTotal)
}

// describe renders an error for the terminal, listing validation details.
func describe(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(appErr.Message)
	if appErr.Code == apperrors.CodeNetwork && appErr.Err != nil {
		fmt.Fprintf(&b, " (%v)", appErr.Err)
	}

	keys := make([]string, 0, len(appErr.Details))
	for k := range appErr.Details {
		if k != apperrors.DetailServerCode {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, appErr.Details[k])
	}
	return b.String()
}
