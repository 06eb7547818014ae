package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"swiftfiles/internal/cli"
	"swiftfiles/internal/client"
)

const defaultAPI = "http://localhost:8080"

func main() {
	os.Exit(run())
}

func run() int {
	apiURL := os.Getenv("SWIFTFILES_API")
	if apiURL == "" {
		apiURL = defaultAPI
	}
	flag.StringVar(&apiURL, "api", apiURL, "SwiftFiles API base URL (env SWIFTFILES_API)")
	credPath := flag.String("credentials", "", "credential file (default in the user config directory)")
	flag.Parse()

	path := *credPath
	if path == "" {
		var err error
		path, err = client.DefaultTokenPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	session, err := client.NewSession(client.New(apiURL), client.NewFileTokenStore(path))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	sub := session.Subscribe(func(ev client.Event) {
		if ev.Type == client.Invalidated {
			fmt.Fprintln(os.Stderr, "Stored credential was rejected and has been removed.")
		}
	})
	defer sub.Unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(session, os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(ctx, flag.Args()); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
