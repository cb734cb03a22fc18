// Package main provides the queue bot entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/queuebot/internal/api/connect"
	"github.com/osa030/queuebot/internal/app/agent"
	"github.com/osa030/queuebot/internal/app/status"
	"github.com/osa030/queuebot/internal/infra/config"
	"github.com/osa030/queuebot/internal/infra/logger"
	"github.com/osa030/queuebot/internal/infra/mqtt"
	"github.com/osa030/queuebot/internal/infra/roon"
)

const (
	stoppedStatus = "Queue bot stopped"
	offlineStatus = "Queue bot offline"
)

var (
	app        = kingpin.New("queuebot", "Roon queue bot extension")
	configPath = app.Flag("config", "Path to config file").Default("config/queuebot.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func init() {
	// start command (default)
	app.Command("start", "Start the queue bot (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkConfigCmd.FullCommand() {
		printConfig(cfg)
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Queue bot error: %v", err)
		os.Exit(1)
	}
}

// run executes the main logic. Using a separate function ensures deferred
// cleanup runs even when returning with an error.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statusMgr := status.NewManager()
	defer statusMgr.Close()

	client := roon.NewClient(roon.Config{
		Host: cfg.Roon.Host,
		Port: cfg.Roon.Port,
		Extension: roon.Extension{
			ID:             cfg.Extension.ID,
			DisplayName:    cfg.Extension.DisplayName,
			DisplayVersion: cfg.Extension.DisplayVersion,
			Publisher:      cfg.Extension.Publisher,
			Email:          cfg.Extension.Email,
			Website:        cfg.Extension.Website,
		},
		Tokens:         roon.NewTokenStore(cfg.Roon.TokenFile),
		ReconnectDelay: cfg.Roon.ReconnectDelay(),
		RequestTimeout: cfg.Roon.RequestTimeout(),
	})
	status.NewRoonService(statusMgr).Register(client)

	if cfg.MQTT.Enabled {
		mqttClient, err := connectMQTT(cfg.MQTT)
		if err != nil {
			return err
		}
		defer mqttClient.Close()
		statusMgr.Subscribe(status.NewMQTTStream(mqttClient, cfg.MQTT.Topic, byte(cfg.MQTT.QoS)))
	}

	loop := agent.NewLoop()
	go loop.Run(ctx)

	bot := agent.New(agent.Config{Marker: cfg.Bot.Marker}, loop, roon.NewTransport(client), statusMgr)
	client.OnPaired(bot.Paired)
	client.OnUnpaired(bot.Unpaired)
	bot.Start()

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		zlog.Info().Msgf("Connecting to Roon Core: host=%s port=%d", cfg.Roon.Host, cfg.Roon.Port)
		_ = client.Run(ctx)
	}()

	var server *http.Server
	serverErrCh := make(chan error, 1)
	if cfg.API.Enabled {
		server = newAPIServer(cfg, bot)
		go func() {
			zlog.Info().Msgf("Starting API server: addr=%s", cfg.API.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
	}

	executeHooks(cfg.Hooks.OnStarted, "on_started")

	var runErr error
	select {
	case <-ctx.Done():
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "api server error")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown API server: %v", err)
		}
	}

	select {
	case <-clientDone:
	case <-shutdownCtx.Done():
		zlog.Warn().Msg("Roon connection did not close in time")
	}
	statusMgr.SetStatus(stoppedStatus, false)

	zlog.Info().Msg("Queue bot stopped")
	executeHooks(cfg.Hooks.OnStopped, "on_stopped")

	return runErr
}

func connectMQTT(cfg config.MQTTConfig) (*mqtt.Client, error) {
	will, err := json.Marshal(status.Status{Message: offlineStatus, IsError: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode will message")
	}

	zlog.Info().Msgf("Connecting to MQTT broker: broker=%s topic=%s", cfg.Broker, cfg.Topic)
	client, err := mqtt.Connect(mqtt.Config{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		Username:    cfg.Username,
		Password:    cfg.Password,
		WillTopic:   cfg.Topic,
		WillPayload: will,
		WillQoS:     byte(cfg.QoS),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MQTT broker")
	}
	return client, nil
}

func newAPIServer(cfg *config.Config, bot *agent.Agent) *http.Server {
	mux := http.NewServeMux()
	path, handler := apiconnect.NewStatusServiceHandler(
		apiconnect.NewStatusService(bot),
		connect.WithInterceptors(apiconnect.NewAuthInterceptor(cfg.API.Token)),
	)
	mux.Handle(path, handler)

	// h2c (HTTP/2 cleartext) support
	return &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// printConfig prints the effective configuration without secrets.
func printConfig(cfg *config.Config) {
	fmt.Println("Config OK")
	fmt.Printf("  Roon Core:      %s:%d\n", cfg.Roon.Host, cfg.Roon.Port)
	fmt.Printf("  Token file:     %s\n", cfg.Roon.TokenFile)
	fmt.Printf("  Extension:      %s (%s %s)\n", cfg.Extension.DisplayName, cfg.Extension.ID, cfg.Extension.DisplayVersion)
	fmt.Printf("  Marker:         %s\n", cfg.Bot.Marker)
	if cfg.API.Enabled {
		fmt.Printf("  API:            %s\n", cfg.API.Addr)
	} else {
		fmt.Println("  API:            disabled")
	}
	if cfg.MQTT.Enabled {
		fmt.Printf("  MQTT:           %s -> %s (qos %d)\n", cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.MQTT.QoS)
	} else {
		fmt.Println("  MQTT:           disabled")
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// sh -c allows redirection and pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
