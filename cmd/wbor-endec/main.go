// Command wbor-endec reads the news feed a Sage Digital ENDEC prints over
// its serial port, decodes each bulletin's EAS header, and forwards the
// result to webhooks, Discord, GroupMe, and RabbitMQ.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/WBOR-91-1-FM/wbor-endec/internal/config"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/dispatch"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/eas"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/endec"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/health"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/logger"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/pipeline"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/rabbitmq"
	"github.com/WBOR-91-1-FM/wbor-endec/internal/server"
)

const sinkTimeout = 30 * time.Second

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "wbor-endec",
	Short: "Decode EAS bulletins from a Sage ENDEC and fan them out",
	Long: `wbor-endec listens to the serial news feed of a Sage Digital ENDEC,
assembles each printed bulletin, decodes its EAS (ZCZC) header, and delivers
the decoded alert to every configured destination: generic webhooks, Discord,
GroupMe, and a RabbitMQ exchange.

At least one destination must be configured. An hourly heartbeat is published
alongside the alerts whenever RabbitMQ is configured.`,
	Run: func(*cobra.Command, []string) { run() },
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.SerialDevice, "com", "c", cfg.SerialDevice, "serial device the ENDEC is connected to")
	flags.IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	flags.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "serial read timeout; a timeout mid-bulletin flushes the partial alert")
	flags.StringSliceVarP(&cfg.WebhookURLs, "webhook", "w", nil, "webhook URL(s) to send alerts to")
	flags.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "HMAC-SHA256 secret for webhook signatures")
	flags.StringSliceVar(&cfg.DiscordURLs, "discord", nil, "Discord webhook URL(s)")
	flags.StringSliceVarP(&cfg.GroupMeBots, "groupme", "g", nil, "GroupMe bot ID(s)")
	flags.StringVar(&cfg.AMQPURL, "amqp-url", cfg.AMQPURL, "RabbitMQ connection URL (amqp or amqps)")
	flags.StringVar(&cfg.AlertExchange, "alert-exchange", cfg.AlertExchange, "exchange decoded alerts are published to")
	flags.StringVar(&cfg.AlertRoutingKey, "alert-routing-key", cfg.AlertRoutingKey, "routing key for decoded alerts")
	flags.StringVar(&cfg.HealthExchange, "health-exchange", cfg.HealthExchange, "exchange heartbeats are published to")
	flags.StringVar(&cfg.HealthRoutingKey, "health-routing-key", cfg.HealthRoutingKey, "routing key for heartbeats")
	flags.DurationVar(&cfg.HealthInterval, "health-interval", cfg.HealthInterval, "heartbeat cadence")
	flags.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "IANA timezone for local timestamps")
	flags.StringVar(&cfg.LocationFile, "locations", cfg.LocationFile, "YAML file of SAME location names (codes shown raw when empty)")
	flags.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "status server listen address")
	flags.BoolVarP(&cfg.Debug, "debug", "d", false, "enable debug logging")
}

func run() {
	if err := logger.Init(cfg.Debug); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	log := logger.Logger

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	log.Info("Starting wbor-endec",
		zap.String("version", config.Version),
		zap.String("device", cfg.SerialDevice),
		zap.String("timezone", cfg.Timezone),
	)

	dir := eas.NewDirectory()
	if cfg.LocationFile != "" {
		loaded, err := eas.LoadDirectory(cfg.LocationFile)
		if err != nil {
			logger.Fatal("Failed to load location directory",
				zap.String("path", cfg.LocationFile),
				zap.Error(err),
			)
		}
		dir = loaded
		log.Info("Loaded location directory", zap.String("path", cfg.LocationFile))
	}
	parser := eas.NewParser(dir, cfg.Location)

	var sinks []dispatch.Sink
	for _, u := range cfg.WebhookURLs {
		sinks = append(sinks, dispatch.NewWebhookSink(u, config.AppName, cfg.WebhookSecret, sinkTimeout))
	}
	for _, u := range cfg.DiscordURLs {
		sinks = append(sinks, dispatch.NewDiscordSink(u, config.AppName, sinkTimeout))
	}
	if len(cfg.GroupMeBots) > 0 {
		sinks = append(sinks, dispatch.NewGroupMeSink(cfg.GroupMeBots, sinkTimeout))
	}

	var alertPub, healthPub *rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		alertPub = rabbitmq.NewPublisher(rabbitmq.Config{
			URL:            cfg.AMQPURL,
			Exchange:       cfg.AlertExchange,
			ConnectionName: config.AppName + "-alerts",
		}, log.Named("rabbitmq"))
		defer alertPub.Close()
		sinks = append(sinks, dispatch.NewBrokerSink(alertPub, cfg.AlertRoutingKey, config.AppName))

		// The heartbeat rides its own connection so a wedged alert channel
		// cannot silence the liveness signal.
		healthPub = rabbitmq.NewPublisher(rabbitmq.Config{
			URL:            cfg.AMQPURL,
			Exchange:       cfg.HealthExchange,
			ConnectionName: config.AppName + "-health",
		}, log.Named("rabbitmq"))
		defer healthPub.Close()
	}

	dispatcher := dispatch.NewDispatcher(sinks, sinkTimeout, log.Named("dispatch"))
	log.Info("Configured destinations", zap.Int("count", dispatcher.SinkCount()))

	open := func() (pipeline.LineSource, error) {
		return endec.Open(endec.PortConfig{
			Device:      cfg.SerialDevice,
			BaudRate:    cfg.BaudRate,
			ReadTimeout: cfg.ReadTimeout,
		})
	}
	pipe := pipeline.New(
		pipeline.Config{Device: cfg.SerialDevice},
		open,
		parser,
		dispatcher,
		log.Named("pipeline"),
	)

	checks := []server.Check{{
		Name: "serial",
		Probe: func() (bool, string) {
			if pipe.Connected() {
				return true, ""
			}
			return false, "serial port closed"
		},
	}}
	if healthPub != nil {
		// The alert publisher dials lazily on the first alert, so its
		// handles say nothing about broker reachability. The health
		// publisher connects on the first heartbeat and stays current.
		probe := healthPub
		checks = append(checks, server.Check{
			Name: "rabbitmq",
			Probe: func() (bool, string) {
				if probe.Healthy() {
					return true, ""
				}
				return false, "connection closed"
			},
		})
	}
	srv := server.New(cfg.ListenAddr, log.Named("server"), checks...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return pipe.Run(ctx) })
	group.Go(func() error { return srv.Run(ctx) })
	if healthPub != nil {
		mon := health.NewMonitor(health.Config{
			RoutingKey: cfg.HealthRoutingKey,
			Interval:   cfg.HealthInterval,
			Source:     config.AppName,
			SerialPort: cfg.SerialDevice,
			ListenAddr: cfg.ListenAddr,
			Version:    config.Version,
		}, healthPub, log.Named("health"))
		group.Go(func() error { return mon.Run(ctx) })
	}

	if err := group.Wait(); err != nil {
		logger.Fatal("Service failed", zap.Error(err))
	}
	log.Info("Shutdown complete")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
