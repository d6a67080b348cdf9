package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gmr0780/bahamas-town-hall/internal/chat"
	"github.com/gmr0780/bahamas-town-hall/internal/config"
	"github.com/gmr0780/bahamas-town-hall/internal/db"
	"github.com/gmr0780/bahamas-town-hall/internal/llm"
	"github.com/gmr0780/bahamas-town-hall/internal/mailer"
	"github.com/gmr0780/bahamas-town-hall/internal/notify"
	"github.com/gmr0780/bahamas-town-hall/internal/server"
	"github.com/gmr0780/bahamas-town-hall/internal/store"
	"github.com/gmr0780/bahamas-town-hall/internal/verify"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the town hall API server",
		Long:  "Connects the database, migrates and seeds it, then serves the chat, survey, and admin APIs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedQuestions(gormDB); err != nil {
		return err
	}
	if err := db.SeedSettings(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database ready (%s)\n", cfg.Database.Driver)

	st := store.New(gormDB)

	sessions := newSessionStore(cfg, out)

	model := chat.NewExtractor(llm.New(llm.Config{
		APIKey:    cfg.Anthropic.APIKey,
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Timeout:   time.Duration(cfg.Anthropic.TimeoutSeconds) * time.Second,
	}))

	mail := mailer.New(mailer.Opts{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		SiteURL:  cfg.SMTP.SiteURL,
	})

	var targets []notify.Notifier
	if s := notify.NewSlack(notify.SlackOpts{
		BotToken:  cfg.Notify.Slack.BotToken,
		ChannelID: cfg.Notify.Slack.ChannelID,
	}); s != nil {
		targets = append(targets, s)
	}
	if d := notify.NewDiscord(notify.DiscordOpts{
		BotToken:  cfg.Notify.Discord.BotToken,
		ChannelID: cfg.Notify.Discord.ChannelID,
	}); d != nil {
		targets = append(targets, d)
	}
	notifier := notify.NewMulti(targets...)
	fmt.Fprintf(out, "Notification channels: %d\n", notifier.Len())

	orch := chat.NewOrchestrator(chat.OrchestratorOpts{
		Sessions: sessions,
		Model:    model,
		Catalog:  st,
		Sink:     st,
		Status:   st,
		Verifier: verify.New(verify.Opts{Secret: cfg.Turnstile.SecretKey}),
		Mailer:   mail,
		Notifier: notifier,
	})

	router := server.NewRouter(server.Opts{
		Store:      st,
		Chat:       orch,
		Summarizer: chat.NewSummarizer(st, model),
		Mailer:     mail,
		Notifier:   notifier,
		AdminToken: cfg.AdminToken,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	sweeper, err := startSweeper(ctx, orch, fmt.Sprintf("@every %s", cfg.SweepInterval()))
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	return server.Start(ctx, server.StartOpts{
		Addr:   cfg.ListenAddr,
		Router: router,
		Out:    out,
	})
}

// newSessionStore picks Redis when configured, the in-process map otherwise.
func newSessionStore(cfg *config.Config, out io.Writer) chat.SessionStore {
	if cfg.Sessions.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Sessions.RedisAddr,
			DB:   cfg.Sessions.RedisDB,
		})
		fmt.Fprintf(out, "Sessions: redis at %s\n", cfg.Sessions.RedisAddr)
		return chat.NewRedisStore(client, cfg.SessionTTL())
	}
	fmt.Fprintf(out, "Sessions: in-memory, TTL %s\n", cfg.SessionTTL())
	return chat.NewMemoryStore(cfg.SessionTTL())
}

type sessionSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// startSweeper evicts expired sessions on a fixed schedule.
func startSweeper(ctx context.Context, sessions sessionSweeper, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		n, err := sessions.Sweep(ctx)
		if err != nil {
			log.Printf("sweeper: %v", err)
			return
		}
		if n > 0 {
			log.Printf("sweeper: evicted %d expired sessions", n)
		}
	}); err != nil {
		return nil, fmt.Errorf("sweeper: schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
