// ABOUTME: Entry point for the weekendly planner CLI and server
// ABOUTME: Routes subcommands and wires the store, token manager, and coordinator
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/harperreed/weekendly/cli"
	"github.com/harperreed/weekendly/store"
	"github.com/harperreed/weekendly/sync"
	"github.com/harperreed/weekendly/web"
)

const version = "0.1.0"

func main() {
	// Optional .env for GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET
	_ = godotenv.Load()

	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Local storage path (default: ~/.local/share/weekendly/weekendly.db)")
	port := flag.Int("port", 8383, "Port for 'serve'")
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("weekendly version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	path := *dbPath
	if path == "" {
		path = store.DefaultStoragePath()
	}

	storage, err := store.OpenStorage(path)
	if err != nil {
		log.Fatalf("Failed to open local storage: %v", err)
	}
	defer func() { _ = storage.Close() }()

	st, err := store.Open(storage)
	if err != nil {
		log.Fatalf("Failed to load events: %v", err)
	}

	tokens := newTokenManager()
	coordinator := sync.NewCoordinator(st, tokens, sync.NewGoogleCalendarGateway(), sync.LogNotifier{})

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "add":
		if err := cli.AddEventCommand(coordinator, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "list":
		if err := cli.ListEventsCommand(st, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "update":
		if err := cli.UpdateEventCommand(coordinator, st, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "remove":
		if err := cli.RemoveEventCommand(coordinator, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "reorder":
		if err := cli.ReorderEventsCommand(coordinator, st, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "auth":
		if len(commandArgs) == 0 {
			fmt.Println("Error: auth requires a subcommand (login, status, logout)")
			os.Exit(1)
		}
		var err error
		switch commandArgs[0] {
		case "login":
			err = cli.AuthLoginCommand(tokens, commandArgs[1:])
		case "status":
			err = cli.AuthStatusCommand(tokens, commandArgs[1:])
		case "logout":
			err = cli.AuthLogoutCommand(tokens, commandArgs[1:])
		default:
			err = fmt.Errorf("unknown auth subcommand: %s", commandArgs[0])
		}
		if err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "serve":
		server := web.NewServer(st, coordinator, tokens)
		if err := server.Start(*port); err != nil {
			log.Fatalf("Server failed: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// newTokenManager wires the token manager, seeding it from the persisted
// token when one exists.
func newTokenManager() *sync.TokenManager {
	var transport sync.RefreshTransport
	if config, err := sync.NewOAuthConfig(); err == nil {
		transport = &sync.OAuthRefreshTransport{Config: config}
	}

	tokens := sync.NewTokenManager(transport, sync.SaveToken)
	if token, err := sync.LoadToken(); err == nil {
		if err := tokens.SignIn(token); err != nil {
			log.Printf("warning: %v", err)
		}
	}
	return tokens
}

func printUsage() {
	fmt.Println(`weekendly - plan your weekends, mirrored to Google Calendar

Usage:
  weekendly add --title <t> --date <YYYY-MM-DD> --start <HH:MM> --end <HH:MM> --activity <a> [--mood <m>] [--theme <t>]
  weekendly list
  weekendly update --id <id> [--title <t>] [--date <d>] [--start <s>] [--end <e>] [--activity <a>] [--mood <m>] [--theme <t>]
  weekendly remove --id <id>
  weekendly reorder --order <id1,id2,...>
  weekendly auth login|status|logout
  weekendly serve [--port <p>]

Flags:
  --db-path   Local storage path
  --version   Show version`)
}
