// Package config loads the bot and webhook configuration from the
// environment (with optional .env bootstrap). Missing or invalid
// required settings are fatal: the process must not start on them.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Date decodes a YYYY-MM-DD environment value.
type Date struct {
	time.Time
}

// Decode implements envconfig.Decoder.
func (d *Date) Decode(value string) error {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	d.Time = t
	return nil
}

// Config holds the bot process configuration.
type Config struct {
	BotToken         string `envconfig:"BOT_TOKEN" required:"true"`
	GroupChatID      int64  `envconfig:"GROUP_CHAT_ID" required:"true"`
	MaintainerChatID int64  `envconfig:"MAINTAINER_CHAT_ID" required:"true"`

	Timezone string `envconfig:"TIMEZONE" default:"Europe/Kyiv"`

	NightStartHour      int `envconfig:"NIGHT_START_HOUR" default:"22"`
	NightEndHourWeekday int `envconfig:"NIGHT_END_HOUR_WEEKDAY" default:"8"`
	NightEndHourWeekend int `envconfig:"NIGHT_END_HOUR_WEEKEND" default:"9"`

	// RegistrationCutover is the date the mandatory-registration gate
	// starts firing.
	RegistrationCutover Date `envconfig:"REGISTRATION_CUTOVER" default:"2024-06-01"`

	// AllowedTopics maps topic names to thread ids; posting there stays
	// allowed during quiet hours. Must contain NightTopic and
	// StatusTopic by name. Format: "SOS:113812,ВІЛЬНА ТЕМА:113831,...".
	AllowedTopics map[string]int `envconfig:"ALLOWED_TOPICS" required:"true"`

	// NightTopic is the holding topic quiet-hours messages are moved
	// into; StatusTopic receives the bot's moderation notices.
	NightTopic  string `envconfig:"NIGHT_TOPIC" default:"НІЧНІ ПОВІДОМЛЕННЯ"`
	StatusTopic string `envconfig:"STATUS_TOPIC" default:"СТАТУС БОТА"`

	UsersFile  string `envconfig:"USERS_FILE" default:"data/users.json"`
	LedgerFile string `envconfig:"LEDGER_FILE" default:"data/night_messages.json"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the bot configuration and validates it.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	for name, hour := range map[string]int{
		"NIGHT_START_HOUR":       c.NightStartHour,
		"NIGHT_END_HOUR_WEEKDAY": c.NightEndHourWeekday,
		"NIGHT_END_HOUR_WEEKEND": c.NightEndHourWeekend,
	} {
		if hour < 0 || hour > 23 {
			return fmt.Errorf("%s must be within 0..23, got %d", name, hour)
		}
	}
	if _, ok := c.AllowedTopics[c.NightTopic]; !ok {
		return fmt.Errorf("ALLOWED_TOPICS has no entry for night topic %q", c.NightTopic)
	}
	if _, ok := c.AllowedTopics[c.StatusTopic]; !ok {
		return fmt.Errorf("ALLOWED_TOPICS has no entry for status topic %q", c.StatusTopic)
	}
	return nil
}

// NightTopicID returns the thread id of the night holding topic.
func (c Config) NightTopicID() int {
	return c.AllowedTopics[c.NightTopic]
}

// StatusTopicID returns the thread id of the bot-status topic.
func (c Config) StatusTopicID() int {
	return c.AllowedTopics[c.StatusTopic]
}

// AllowedThreadIDs returns the allow-list as a thread-id set.
func (c Config) AllowedThreadIDs() map[int]bool {
	ids := make(map[int]bool, len(c.AllowedTopics))
	for _, id := range c.AllowedTopics {
		ids[id] = true
	}
	return ids
}

// AllowedTopicNames returns the topic names for announcements, sorted
// for stable output.
func (c Config) AllowedTopicNames() []string {
	names := make([]string, 0, len(c.AllowedTopics))
	for name := range c.AllowedTopics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Webhook holds the deploy-webhook process configuration.
type Webhook struct {
	Secret          string `envconfig:"WEBHOOK_SECRET" required:"true"`
	Addr            string `envconfig:"WEBHOOK_ADDR" default:":5000"`
	ReinstallScript string `envconfig:"REINSTALL_SCRIPT" default:"./reinstall.sh"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadWebhook reads the webhook configuration.
func LoadWebhook() (Webhook, error) {
	_ = godotenv.Load()

	var cfg Webhook
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
