package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jonboulle/clockwork"
	"github.com/katatrina/xsmb-live/api"
	"github.com/katatrina/xsmb-live/internal/event"
	"github.com/katatrina/xsmb-live/internal/feed"
	"github.com/katatrina/xsmb-live/internal/publisher"
	"github.com/katatrina/xsmb-live/internal/redisconn"
	"github.com/katatrina/xsmb-live/internal/scheduler"
	"github.com/katatrina/xsmb-live/internal/store"
	"github.com/katatrina/xsmb-live/internal/stream"
	"github.com/katatrina/xsmb-live/internal/util"
	"github.com/katatrina/xsmb-live/internal/worker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}

	log.Info().Msg("configurations loaded successfully ✅")

	location := util.LoadLocation(config.Timezone)

	// Kết nối Redis được khởi tạo lười ở lần dùng đầu tiên
	provider, err := redisconn.NewProvider(redisconn.Options{
		URL:        config.RedisURL,
		MaxRetries: config.RedisMaxRetries,
		MinBackoff: config.RedisMinBackoff,
		MaxBackoff: config.RedisMaxBackoff,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate redis connection string 😣")
	}
	log.Info().Str("addr", provider.Addr()).Msg("redis provider configured ✅")

	transport, err := newTransport(config, provider)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create broker transport 😣")
	}
	log.Info().Str("driver", config.BrokerDriver).Msg("broker transport created ✅")

	drawStore := store.NewDrawStore(provider, config.DrawTTL)
	log.Info().Dur("ttl", drawStore.TTL()).Msg("draw store ready ✅")
	eventSender := event.NewSSEServer(transport)
	fieldPublisher := publisher.NewPublisher(drawStore, eventSender)
	simulator := feed.NewSimulator(fieldPublisher, feed.WithSteps(feed.MockSchedule(config.SimulatorDelay)))

	streamService := stream.NewService(drawStore, eventSender, simulator, stream.Config{
		KeepAliveInterval: config.KeepAliveInterval,
		Location:          location,
		Clock:             clockwork.NewRealClock(),
	})

	redisOpt, err := asynq.ParseRedisURI(config.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse redis url for task queue 😣")
	}
	taskDistributor := worker.NewTaskDistributor(redisOpt)
	taskProcessor := worker.NewRedisTaskProcessor(redisOpt, fieldPublisher)

	var poller *feed.Poller
	var feedPoller scheduler.FeedPoller
	if config.FeedURL != "" {
		poller = feed.NewPoller(config.FeedURL, config.FeedTimeout, taskDistributor)
		feedPoller = poller
	}

	drawHour, drawMinute, _ := util.ParseClock(config.DrawTime)
	drawScheduler, err := scheduler.NewDrawScheduler(scheduler.Config{
		Location:        location,
		DrawHour:        drawHour,
		DrawMinute:      drawMinute,
		DailySimulation: config.DailySimulation,
		PollInterval:    config.FeedPollInterval,
	}, simulator, feedPoller)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create draw scheduler 😣")
	}

	server := api.NewServer(&config, streamService, provider, location)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info().Str("address", config.HTTPServerAddress).Msg("HTTP server started ✅")
		if err := server.Start(config.HTTPServerAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		if err := taskProcessor.Start(); err != nil {
			return err
		}
		log.Info().Msg("task processor started ✅")
		return nil
	})

	group.Go(func() error {
		if err := drawScheduler.Start(); err != nil {
			return err
		}
		log.Info().Msg("draw scheduler started ✅")
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down HTTP server")
		}
		if err := drawScheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop draw scheduler")
		}
		taskProcessor.Shutdown()
		if poller != nil {
			if err := poller.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close feed poller")
			}
		}
		if err := taskDistributor.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close task distributor")
		}
		if err := transport.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close broker transport")
		}
		if err := provider.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis connection")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error 😣")
	}
	log.Info().Msg("service stopped ✅")
}

func newTransport(config util.Config, provider *redisconn.Provider) (event.Transport, error) {
	if config.BrokerDriver == util.BrokerDriverNATS {
		natsConfig := event.DefaultNATSConfig()
		natsConfig.URL = config.NATSURL
		return event.NewNATSTransport(natsConfig)
	}
	return event.NewRedisTransport(provider), nil
}
