// Package app wires the bot process together and runs it.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"github.com/example/curfewbot/internal/config"
	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/ledger"
	"github.com/example/curfewbot/internal/moderation"
	"github.com/example/curfewbot/internal/night"
	"github.com/example/curfewbot/internal/registry"
	"github.com/example/curfewbot/internal/schedule"
	"github.com/example/curfewbot/internal/scheduler"
	"github.com/example/curfewbot/internal/store"
	"github.com/example/curfewbot/internal/telegram"
)

// App is the assembled bot process.
type App struct {
	cfg  config.Config
	log  *zap.Logger
	bot  *tele.Bot
	tick *scheduler.Scheduler
}

// New loads durable state, connects to Telegram and wires every
// component. Malformed durable state and bad credentials are returned
// as errors; the caller must not continue with them.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	sched := schedule.New(loc, cfg.NightStartHour, cfg.NightEndHourWeekday, cfg.NightEndHourWeekend)

	reg := registry.New(store.NewJSONFile[domain.Member](cfg.UsersFile), log)
	if err := reg.Load(); err != nil {
		return nil, err
	}
	led := ledger.New(store.NewJSONFile[domain.DeferredMessage](cfg.LedgerFile))
	if err := led.Load(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 30 * time.Second},
		// One update at a time: message handling and registry mutations
		// must not interleave.
		Synchronous: true,
		OnError:     a.onError,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	a.bot = bot

	client := telegram.NewClient(bot)
	state := night.NewState(sched.InNightWindow(sched.Now()))

	engine := moderation.NewEngine(moderation.Config{
		GroupID:        cfg.GroupChatID,
		StatusThreadID: cfg.StatusTopicID(),
		NightThreadID:  cfg.NightTopicID(),
		AllowedThreads: cfg.AllowedThreadIDs(),
		Cutover:        cfg.RegistrationCutover.Time,
	}, reg, state, led, client, log)

	controller := night.NewController(night.Config{
		GroupID:        cfg.GroupChatID,
		StatusThreadID: cfg.StatusTopicID(),
		AllowedTopics:  cfg.AllowedTopicNames(),
	}, state, sched, reg, led, client, log)

	registrar := telegram.NewRegistrar(client, reg, cfg.GroupChatID, cfg.MaintainerChatID, sched.Now)
	router := telegram.NewRouter(bot, log, client, engine, registrar, reg,
		cfg.GroupChatID, cfg.StatusTopicID(), sched.Now)
	router.Register()

	a.tick = scheduler.New(loc, controller)

	log.Info("bot assembled",
		zap.String("username", bot.Me.Username),
		zap.Bool("night", state.IsNight()),
	)
	return a, nil
}

// Run starts the hourly tick and the long poller, then blocks until a
// shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.tick.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	go a.bot.Start()

	a.log.Info("bot started")
	<-ctx.Done()

	a.log.Info("shutdown signal received")
	a.bot.Stop()
	a.tick.Stop()
	return nil
}

// onError is the top-level catcher for per-update failures: log with
// full context, tell the maintainer, keep serving. One bad event must
// not crash the service.
func (a *App) onError(err error, c tele.Context) {
	fields := []zap.Field{zap.Error(err), zap.Stack("stack")}
	if c != nil {
		fields = append(fields, zap.Any("update", c.Update()))
	}
	a.log.Error("update handler failed", fields...)

	if a.bot == nil {
		return
	}
	text := fmt.Sprintf("Помилка обробки оновлення: %v", err)
	if _, sendErr := a.bot.Send(tele.ChatID(a.cfg.MaintainerChatID), text); sendErr != nil {
		a.log.Error("maintainer notification failed", zap.Error(sendErr))
	}
}
