// Package main provides the queue bot operator CLI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/queuebot/internal/api/connect"
)

var (
	app     = kingpin.New("queuebotctl", "Queue bot operator client")
	server  = app.Flag("server", "API server address").Default("http://localhost:8090").String()
	token   = app.Flag("token", "API token (or set QUEUEBOT_API_TOKEN env)").Envar("QUEUEBOT_API_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("5s").Duration()

	// status command
	statusCmd = app.Command("status", "Show pairing and status text")

	// zones command
	zonesCmd = app.Command("zones", "List monitored zones").Alias("list")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: API token is required (use --token or QUEUEBOT_API_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewStatusClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.WithToken(*token)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = showStatus(ctx, client)
	case zonesCmd.FullCommand():
		err = listZones(ctx, client)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func showStatus(ctx context.Context, client *apiconnect.StatusClient) error {
	resp, err := client.GetStatus(ctx, connect.NewRequest(&apiconnect.GetStatusRequest{}))
	if err != nil {
		return err
	}

	s := resp.Msg
	fmt.Println("\n=== QUEUE BOT STATUS ===")
	if s.Paired {
		fmt.Printf("Core: %s (%s)\n", s.CoreName, s.CoreID)
		fmt.Printf("Zones: %d\n", s.ZoneCount)
	} else {
		fmt.Println("Core: not paired")
	}
	if s.IsError {
		fmt.Println("State: WARNING")
	}
	fmt.Printf("\n%s\n\n", s.Status)
	return nil
}

func listZones(ctx context.Context, client *apiconnect.StatusClient) error {
	resp, err := client.ListZones(ctx, connect.NewRequest(&apiconnect.ListZonesRequest{}))
	if err != nil {
		return err
	}

	if len(resp.Msg.Zones) == 0 {
		fmt.Println("No zones monitored")
		return nil
	}

	fmt.Printf("%-24s %-10s %-14s %s\n", "ZONE", "STATE", "PHASE", "STANDBY")
	for _, z := range resp.Msg.Zones {
		standby := "-"
		if z.SupportsStandby {
			standby = "yes"
		}
		fmt.Printf("%-24s %-10s %-14s %s\n", z.DisplayName, z.State, z.Phase, standby)
	}
	return nil
}
