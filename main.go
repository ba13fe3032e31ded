package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Abu-al-Hun/telegram-security/internal/bot"
	"github.com/Abu-al-Hun/telegram-security/internal/config"
	"github.com/Abu-al-Hun/telegram-security/internal/db/sqlite"
	"github.com/Abu-al-Hun/telegram-security/internal/handlers"
	"github.com/Abu-al-Hun/telegram-security/internal/infra"
	"github.com/Abu-al-Hun/telegram-security/internal/observability"
	"github.com/Abu-al-Hun/telegram-security/internal/security"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.SecFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	infra.GoRecoverable(-1, "process_updates", func() {
		if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
			log.WithError(err).Warn("cant initialize observability")
		}

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}
		defer botAPI.StopReceivingUpdates()

		workDir := infra.GetWorkDir()
		dbClient, err := sqlite.NewSQLiteClient(ctx, workDir, "security.db")
		if err != nil {
			log.WithError(err).Fatalln("cant initialize db")
		}
		defer dbClient.Close()

		policies := security.NewPolicyStore(filepath.Join(workDir, cfg.Security.PolicyFile))
		policies.Load()
		tracker := security.NewRateTracker(cfg.Security.FloodWindow, cfg.Security.FloodThreshold)
		ledger := security.NewRestrictionLedger(dbClient)
		if err := ledger.Load(ctx); err != nil {
			log.WithError(err).Warn("cant hydrate restriction ledger")
		}
		engine := security.NewEngine(policies, tracker, security.NewContentMatcher(), ledger, cfg.Security.MuteDuration)

		service := bot.NewService(botAPI, dbClient)
		bot.RegisterUpdateHandler("security", handlers.NewSecurity(service, engine))

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateProcessor := bot.NewUpdateProcessor(service)
		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Security.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if evicted := tracker.Sweep(time.Now()); evicted > 0 {
						log.WithField("evicted", evicted).Debug("swept stale rate windows")
					}
				}
			}
		})
		g.Go(func() error {
			for {
				select {
				case err := <-errorChan:
					return err
				case update := <-updateChan:
					if err := updateProcessor.Process(gctx, &update); err != nil {
						log.WithError(err).Errorln("cant process update")
					}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
		if err := g.Wait(); err != nil {
			log.WithError(err).Fatalln("bot api get updates error")
		}
	})

	select {
	case <-infra.MonitorExecutable(ctx):
		log.Errorln("executable file was modified")
	}
	os.Exit(0)
}
