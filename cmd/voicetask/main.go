// Command voicetask turns free-form transcripts into Todoist tasks
// through a multi-turn conversation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/kweiss/voicetask/internal/conversation"
	"github.com/kweiss/voicetask/internal/coordinator"
	"github.com/kweiss/voicetask/internal/credential"
	"github.com/kweiss/voicetask/internal/events"
	"github.com/kweiss/voicetask/internal/helperstate"
	"github.com/kweiss/voicetask/internal/logging"
	"github.com/kweiss/voicetask/internal/model"
	"github.com/kweiss/voicetask/internal/service"
	"github.com/kweiss/voicetask/internal/todoist"
	"github.com/kweiss/voicetask/internal/ui/convo"
)

// tokenEnvVar lets CI and scripts bypass the keyring.
const tokenEnvVar = "TODOIST_API_TOKEN"

func main() {
	var (
		configPath string
		logLevel   string
	)

	app := &cli.Command{
		Name:      "voicetask",
		Usage:     "Create Todoist tasks from free-form voice transcripts",
		UsageText: "voicetask [global options] command [command options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("VOICETASK_CONFIG"),
				Value:       model.DefaultConfigPath(),
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("VOICETASK_LOG_LEVEL"),
				Value:       "info",
				Destination: &logLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logging.Setup(os.Stderr, logLevel, true)
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "setup",
				Usage: "Configure the Todoist API token and intervals",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runSetup(configPath)
				},
			},
			{
				Name:  "run",
				Usage: "Start the interactive conversation panel",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runInteractive(ctx, configPath)
				},
			},
			{
				Name:      "parse",
				Usage:     "Extract actions from a transcript without creating anything",
				ArgsUsage: "<text>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runParse(c)
				},
			},
			{
				Name:      "date",
				Usage:     "Resolve a date phrase to an ISO date",
				ArgsUsage: "<phrase>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runDate(c)
				},
			},
			{
				Name:  "refresh",
				Usage: "Fetch the current projects and tasks once and print counts",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runRefresh(ctx, configPath)
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runSetup collects the token and intervals via a form, storing the
// token in the system keyring and the rest in the config file.
func runSetup(configPath string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	var (
		token       string
		intervalStr = strconv.Itoa(cfg.Todoist.UpdateIntervalSec)
		timeoutStr  = strconv.Itoa(cfg.Conversation.TimeoutSec)
		project     = cfg.Conversation.DefaultProject
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Todoist API Token").
				Description("From Todoist Settings > Integrations > Developer").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Update interval (seconds)").
				Description("How often projects and tasks are re-fetched (60-3600)").
				Value(&intervalStr),
			huh.NewInput().
				Title("Conversation timeout (seconds)").
				Description("How long an idle conversation stays alive (30-600)").
				Value(&timeoutStr),
			huh.NewInput().
				Title("Default project").
				Description("Project used when none is named").
				Value(&project),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("running setup form: %w", err)
	}

	if v, err := strconv.Atoi(intervalStr); err == nil {
		cfg.Todoist.UpdateIntervalSec = v
	}
	if v, err := strconv.Atoi(timeoutStr); err == nil {
		cfg.Conversation.TimeoutSec = v
	}
	if project != "" {
		cfg.Conversation.DefaultProject = project
	}

	if err := credential.Set(credential.TokenKey, token); err != nil {
		return err
	}
	if err := model.SaveConfig(configPath, cfg); err != nil {
		return err
	}

	fmt.Println("Configuration saved. Run 'voicetask run' to start.")
	return nil
}

// runInteractive wires the full stack and hands control to the chat
// panel.
func runInteractive(ctx context.Context, configPath string) error {
	app, cleanup, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.coord.Refresh(ctx); err != nil {
		if todoist.IsAuthError(err) {
			return fmt.Errorf("authentication failed; run 'voicetask setup' to update the token: %w", err)
		}
		return err
	}

	app.coord.Start()
	defer app.coord.Stop()

	program := tea.NewProgram(
		convo.New(app.svc, 100, 30),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running conversation panel: %w", err)
	}
	return nil
}

// runParse extracts actions without touching any remote state.
func runParse(c *cli.Command) error {
	text := c.Args().First()
	if text == "" {
		return fmt.Errorf("usage: voicetask parse <text>")
	}

	svc := service.New(nil, nil, nil, model.ConversationConfig{})
	result, err := svc.ParseVoiceInput(text)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// runDate resolves a date phrase.
func runDate(c *cli.Command) error {
	phrase := c.Args().First()
	if phrase == "" {
		return fmt.Errorf("usage: voicetask date <phrase>")
	}

	svc := service.New(nil, nil, nil, model.ConversationConfig{})
	result, err := svc.ValidateDate(phrase)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// runRefresh performs a one-shot snapshot refresh.
func runRefresh(ctx context.Context, configPath string) error {
	app, cleanup, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := app.svc.RefreshProjects(ctx)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// appStack bundles the wired components a command needs.
type appStack struct {
	coord *coordinator.Coordinator
	svc   *service.Service
}

// buildApp loads config, resolves the token, and wires the client,
// stores, coordinator, engine, and service together.
func buildApp(configPath string) (*appStack, func(), error) {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	token := os.Getenv(tokenEnvVar)
	if token == "" {
		token, err = credential.Get(credential.TokenKey)
		if err != nil {
			return nil, nil, fmt.Errorf(
				"no API token found; set %s or run 'voicetask setup': %w",
				tokenEnvVar, err,
			)
		}
	}

	store, err := helperstate.NewSQLiteStore(cfg.State.DBPath)
	if err != nil {
		return nil, nil, err
	}

	client := todoist.NewClient(token, cfg.Todoist.BaseURL)
	coord := coordinator.New(
		client,
		store,
		time.Duration(cfg.Todoist.UpdateIntervalSec)*time.Second,
	)
	engine := conversation.NewEngine(
		coord,
		store,
		time.Duration(cfg.Conversation.TimeoutSec)*time.Second,
	)
	svc := service.New(coord, engine, events.NewBus(), cfg.Conversation)

	log := logging.Component("main")
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close state store")
		}
	}
	return &appStack{coord: coord, svc: svc}, cleanup, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
