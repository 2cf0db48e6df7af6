// Package config carries the decoder's runtime settings and validates them
// before the pipeline starts, so a bad device path or URL fails loudly at
// boot instead of silently at the first alert.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	AppName = "wbor-endec"
	Version = "3.0.0"
)

type Config struct {
	SerialDevice string
	BaudRate     int
	ReadTimeout  time.Duration

	WebhookURLs   []string
	WebhookSecret string
	DiscordURLs   []string
	GroupMeBots   []string

	AMQPURL          string
	AlertExchange    string
	AlertRoutingKey  string
	HealthExchange   string
	HealthRoutingKey string
	HealthInterval   time.Duration

	Timezone     string
	LocationFile string
	ListenAddr   string
	Debug        bool

	// Location is resolved from Timezone by Validate.
	Location *time.Location
}

// Default returns the baseline configuration. Environment variables seed
// the values deployments usually set outside the command line; flags
// override both.
func Default() Config {
	return Config{
		SerialDevice:     envOr("ENDEC_SERIAL_DEVICE", "/dev/ttyUSB0"),
		BaudRate:         9600,
		ReadTimeout:      10 * time.Second,
		WebhookSecret:    os.Getenv("ENDEC_WEBHOOK_SECRET"),
		AMQPURL:          os.Getenv("RABBITMQ_URL"),
		AlertExchange:    envOr("RABBITMQ_ALERT_EXCHANGE", "eas"),
		AlertRoutingKey:  envOr("RABBITMQ_ALERT_ROUTING_KEY", "eas.alert"),
		HealthExchange:   envOr("RABBITMQ_EXCHANGE_NAME", "healthcheck"),
		HealthRoutingKey: envOr("RABBITMQ_HEALTHCHECK_ROUTING_KEY", "health.wbor-endec"),
		HealthInterval:   time.Hour,
		Timezone:         envOr("TIMEZONE", "America/New_York"),
		LocationFile:     os.Getenv("ENDEC_LOCATIONS_FILE"),
		ListenAddr:       envOr("ENDEC_LISTEN_ADDR", ":8040"),
	}
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// Validate checks every setting and reports all problems at once, so an
// operator fixes one bad config file in one round trip. On success the
// timezone is resolved into Location.
func (c *Config) Validate() error {
	var problems []string

	if c.SerialDevice == "" {
		problems = append(problems, "serial device is required")
	} else if info, err := os.Stat(c.SerialDevice); err != nil {
		problems = append(problems, fmt.Sprintf("serial device %s: %v", c.SerialDevice, err))
	} else if info.Mode()&os.ModeCharDevice == 0 {
		problems = append(problems, fmt.Sprintf("serial device %s is not a character device", c.SerialDevice))
	}

	if c.BaudRate <= 0 {
		problems = append(problems, fmt.Sprintf("baud rate %d is not positive", c.BaudRate))
	}
	if c.ReadTimeout <= 0 {
		problems = append(problems, "read timeout must be positive")
	}

	if len(c.WebhookURLs)+len(c.DiscordURLs)+len(c.GroupMeBots) == 0 && c.AMQPURL == "" {
		problems = append(problems, "at least one destination (webhook, discord, groupme, or rabbitmq) is required")
	}

	for _, raw := range c.WebhookURLs {
		if err := checkURL(raw, "http", "https"); err != nil {
			problems = append(problems, fmt.Sprintf("webhook url %q: %v", raw, err))
		}
	}
	for _, raw := range c.DiscordURLs {
		if err := checkURL(raw, "http", "https"); err != nil {
			problems = append(problems, fmt.Sprintf("discord url %q: %v", raw, err))
		}
	}
	for i, bot := range c.GroupMeBots {
		if strings.TrimSpace(bot) == "" {
			problems = append(problems, fmt.Sprintf("groupme bot id %d is empty", i+1))
		}
	}
	if c.AMQPURL != "" {
		// The URL itself stays out of the message; it usually carries
		// credentials.
		if err := checkURL(c.AMQPURL, "amqp", "amqps"); err != nil {
			problems = append(problems, fmt.Sprintf("rabbitmq url: %v", err))
		}
		if c.AlertExchange == "" {
			problems = append(problems, "alert exchange is required when rabbitmq is configured")
		}
		if c.AlertRoutingKey == "" {
			problems = append(problems, "alert routing key is required when rabbitmq is configured")
		}
		if c.HealthInterval <= 0 {
			problems = append(problems, "health interval must be positive")
		}
	}

	if loc, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("timezone %q: %v", c.Timezone, err))
	} else {
		c.Location = loc
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme {
			return nil
		}
	}
	return fmt.Errorf("scheme %q is not one of %s", u.Scheme, strings.Join(schemes, "/"))
}
