package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/rs/zerolog/log"
)

// DrawWindow is how long after the draw time the feed keeps being polled.
const DrawWindow = time.Hour

// pollLead is how long before the draw time polling starts.
const pollLead = 5 * time.Minute

// SimulationRunner runs a whole simulated draw.
type SimulationRunner interface {
	Run(ctx context.Context, date string, meta lottery.Metadata, onStep func(lottery.RevealEvent)) error
}

// FeedPoller fetches one round of results for a draw date.
// Forget drops what the poller remembers about a date that is over.
type FeedPoller interface {
	Poll(ctx context.Context, date string) (int, error)
	Forget(date string)
}

// Config holds the schedule of the draw jobs.
type Config struct {
	Location        *time.Location
	DrawHour        uint
	DrawMinute      uint
	DailySimulation bool
	PollInterval    time.Duration
}

// DrawScheduler là một struct chạy các cronjob của buổi quay: mô phỏng hằng ngày và poll nguồn kết quả.
type DrawScheduler struct {
	config    Config
	simulator SimulationRunner
	poller    FeedPoller
	scheduler gocron.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	// lastPolled is only touched by the poll job, which never overlaps itself.
	lastPolled string
}

// NewDrawScheduler tạo scheduler mới. poller may be nil when no upstream feed is configured.
func NewDrawScheduler(config Config, simulator SimulationRunner, poller FeedPoller) (*DrawScheduler, error) {
	if config.Location == nil {
		config.Location = time.Local
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(config.Location))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DrawScheduler{
		config:    config,
		simulator: simulator,
		poller:    poller,
		scheduler: scheduler,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start bắt đầu chạy các cronjob đã cấu hình.
func (s *DrawScheduler) Start() error {
	if s.config.DailySimulation && s.simulator != nil {
		_, err := s.scheduler.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(s.config.DrawHour, s.config.DrawMinute, 0))),
			gocron.NewTask(s.runSimulation),
			gocron.WithName("daily_simulation"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
		log.Info().
			Uint("hour", s.config.DrawHour).
			Uint("minute", s.config.DrawMinute).
			Msg("daily draw simulation scheduled")
	}

	if s.poller != nil && s.config.PollInterval > 0 {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(s.config.PollInterval),
			gocron.NewTask(s.pollFeed),
			gocron.WithName("poll_feed"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
		log.Info().Dur("interval", s.config.PollInterval).Msg("feed polling scheduled")
	}

	// Bắt đầu scheduler
	s.scheduler.Start()
	return nil
}

// Stop dừng các cronjob và huỷ job đang chạy.
func (s *DrawScheduler) Stop() error {
	s.cancel()
	return s.scheduler.Shutdown()
}

func (s *DrawScheduler) today() time.Time {
	return time.Now().In(s.config.Location)
}

func (s *DrawScheduler) runSimulation() {
	now := s.today()
	date := lottery.FormatDate(now)

	log.Info().
		Str("job", "daily_simulation").
		Str("draw_date", date).
		Time("start_time", now).
		Msg("starting simulated draw")

	meta := lottery.StationMetadata(lottery.DefaultRegionCode, now)
	if err := s.simulator.Run(s.ctx, date, meta, nil); err != nil {
		log.Warn().Err(err).Str("draw_date", date).Msg("simulated draw interrupted")
	}
}

func (s *DrawScheduler) pollFeed() {
	s.pollAt(s.today())
}

func (s *DrawScheduler) pollAt(now time.Time) {
	if !InDrawWindow(now, s.config.DrawHour, s.config.DrawMinute) {
		return
	}

	date := lottery.FormatDate(now)
	if s.lastPolled != "" && s.lastPolled != date {
		s.poller.Forget(s.lastPolled)
		log.Debug().Str("job", "poll_feed").Str("draw_date", s.lastPolled).Msg("poll history dropped")
	}
	s.lastPolled = date

	ctx, cancel := context.WithTimeout(s.ctx, s.config.PollInterval)
	defer cancel()

	n, err := s.poller.Poll(ctx, date)
	if err != nil {
		log.Error().Err(err).Str("job", "poll_feed").Str("draw_date", date).Msg("failed to poll feed")
		return
	}
	if n > 0 {
		log.Info().Str("job", "poll_feed").Str("draw_date", date).Int("reveals", n).Msg("feed reveals distributed")
	}
}

// InDrawWindow reports whether now falls between shortly before the draw time
// and DrawWindow after it, on the same day.
func InDrawWindow(now time.Time, hour, minute uint) bool {
	start := time.Date(now.Year(), now.Month(), now.Day(), int(hour), int(minute), 0, 0, now.Location())
	return !now.Before(start.Add(-pollLead)) && now.Before(start.Add(DrawWindow))
}
