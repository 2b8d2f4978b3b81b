package gamemaster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/knyzorg/discord-game-manager/pkg/config"
	"github.com/knyzorg/discord-game-manager/pkg/game"
	"github.com/knyzorg/discord-game-manager/pkg/gateway"
	"github.com/knyzorg/discord-game-manager/pkg/history"
	"github.com/knyzorg/discord-game-manager/pkg/manager"
	"github.com/knyzorg/discord-game-manager/pkg/telemetry"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Gamemaster bot",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	// A local .env is optional; environment wins either way.
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := config.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format, nil)
	logger.Info("starting gamemaster",
		slog.String("version", version),
		slog.String("prefix", cfg.Discord.Prefix),
		slog.Int("min_players", cfg.Game.MinPlayers),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = telemetry.WithLogger(ctx, logger)

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		Enabled:  cfg.Tracing.Enabled,
		Endpoint: cfg.Tracing.Endpoint,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	var rec *history.Recorder
	if cfg.History.Enabled {
		rec, err = history.Open(cfg.History.DSN, logger)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer rec.Close()
	}

	token := os.Getenv(cfg.Discord.TokenEnv)
	if token == "" {
		return fmt.Errorf("discord bot token not set (env %s)", cfg.Discord.TokenEnv)
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	if err := dg.Open(); err != nil {
		return fmt.Errorf("opening discord connection: %w", err)
	}
	defer dg.Close()
	logger.Info("connected to discord", slog.String("user", dg.State.User.Username))

	gameCfg := game.Config{
		MinPlayers:      cfg.Game.MinPlayers,
		SharingRounds:   cfg.Game.SharingRounds,
		SharingDuration: cfg.Game.SharingDuration.Duration,
		CountdownStep:   cfg.Game.CountdownStep.Duration,
		ShareTimeout:    cfg.Game.ShareTimeout.Duration,
		SwitchTimeout:   cfg.Game.SwitchTimeout.Duration,
		AbortCooldown:   cfg.Game.AbortCooldown.Duration,
	}

	var mgrRec game.Recorder
	if rec != nil {
		mgrRec = rec
	}
	mgr := manager.New(dg, cfg.Discord.Prefix, gameCfg, logger, mgrRec)
	mgr.Start(ctx)
	defer mgr.Stop()

	if cfg.Status.Enabled {
		gw := gateway.New(gateway.Config{
			Bind:    cfg.Status.Bind,
			Port:    cfg.Status.Port,
			Manager: mgr,
			History: rec,
			Logger:  logger,
		})
		go func() {
			if err := gw.Start(ctx); err != nil {
				logger.Error("status server failed", slog.String("err", err.Error()))
			}
		}()
	}

	logger.Info("ready; mention the bot in a guild to create a game")
	<-ctx.Done()
	logger.Info("shutting down")

	return nil
}
