// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/classhub/cmd/app/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Classhub multi-tenant classroom platform",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx)
				},
			},
			{
				Name:  "dispatcher",
				Usage: "Start the outbox event dispatcher",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunDispatcher(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-tenant",
				Usage: "Provision a new tenant",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Human-readable tenant name",
					},
					&cli.StringFlag{
						Name:     "subdomain",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "Unique tenant subdomain",
					},
					&cli.BoolFlag{
						Name:    "active",
						Aliases: []string{"a"},
						Value:   true,
						Usage:   "Whether the tenant is active immediately",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateTenant(
						ctx,
						cmd.String("name"),
						cmd.String("subdomain"),
						cmd.Bool("active"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
