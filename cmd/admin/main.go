package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const (
	flagAuthURL     = "auth-url"
	flagBookingsURL = "bookings-url"
	flagSessionFile = "session-file"
	flagRedisAddr   = "redis-addr"
	flagLogLevel    = "log-level"
	flagTimeout     = "timeout"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "tourdesk-admin",
		Usage: "manage tour bookings from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagAuthURL,
				Value:   "http://localhost:8081",
				EnvVars: []string{"TOURDESK_AUTH_URL"},
				Usage:   "base URL of the auth service",
			},
			&cli.StringFlag{
				Name:    flagBookingsURL,
				Value:   "http://localhost:8080",
				EnvVars: []string{"TOURDESK_BOOKINGS_URL"},
				Usage:   "base URL of the bookings service",
			},
			&cli.StringFlag{
				Name:    flagSessionFile,
				EnvVars: []string{"TOURDESK_SESSION_FILE"},
				Usage:   "where tokens are kept (default ~/.tourdesk/session.json)",
			},
			&cli.StringFlag{
				Name:    flagRedisAddr,
				EnvVars: []string{"TOURDESK_SESSION_REDIS"},
				Usage:   "keep tokens in Redis instead of a file",
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.DurationFlag{
				Name:  flagTimeout,
				Value: 0,
				Usage: "per-request timeout (default 10s)",
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			healthCommand(),
			lookupCommand(),
			addCommand(),
			listCommand(),
			statsCommand(),
			confirmCommand(),
			updateCommand(),
			statusCommand(),
			deleteCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}
