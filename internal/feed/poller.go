package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/katatrina/xsmb-live/internal/worker"
	"github.com/rs/zerolog/log"
	"resty.dev/v3"
)

// UpstreamResult is the body served by the upstream results endpoint.
type UpstreamResult struct {
	Fields   map[string]string `json:"fields"`
	Metadata lottery.Metadata  `json:"metadata"`
}

// Poller là adapter cho nguồn kết quả thật: định kỳ gọi API bên ngoài và đẩy
// những giải vừa có kết quả vào hàng đợi worker.
type Poller struct {
	url         string
	client      *resty.Client
	distributor worker.TaskDistributor

	mu   sync.Mutex
	seen map[string]map[string]string // draw date -> field -> value
}

func NewPoller(url string, timeout time.Duration, distributor worker.TaskDistributor) *Poller {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Poller{
		url:         url,
		client:      client,
		distributor: distributor,
		seen:        make(map[string]map[string]string),
	}
}

// Poll fetches the upstream state of date and enqueues every field whose value
// changed since the previous poll, in canonical reveal order.
// It returns the number of reveals handed to the queue.
func (p *Poller) Poll(ctx context.Context, date string) (int, error) {
	var result UpstreamResult
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("date", date).
		SetResult(&result).
		Get(p.url)
	if err != nil {
		return 0, fmt.Errorf("failed to call upstream feed: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("upstream feed returned status %d", resp.StatusCode())
	}

	p.mu.Lock()
	seen, ok := p.seen[date]
	if !ok {
		seen = make(map[string]string)
		p.seen[date] = seen
	}
	p.mu.Unlock()

	distributed := 0
	for _, field := range lottery.Fields() {
		value, ok := result.Fields[field]
		if !ok || !lottery.IsRevealed(value) {
			continue
		}
		if !wellFormed(field, value) {
			log.Warn().Str("draw_date", date).Str("field", field).Str("value", value).Msg("ignoring malformed upstream value")
			continue
		}

		p.mu.Lock()
		unchanged := seen[field] == value
		p.mu.Unlock()
		if unchanged {
			continue
		}

		err := p.distributor.DistributeTaskRevealField(ctx, &worker.PayloadRevealField{
			DrawDate: date,
			Field:    field,
			Value:    value,
			Metadata: result.Metadata,
		})
		if err != nil {
			// Bỏ qua lần này, lần poll sau sẽ thử lại.
			log.Error().Err(err).Str("draw_date", date).Str("field", field).Msg("failed to distribute reveal")
			continue
		}

		p.mu.Lock()
		seen[field] = value
		p.mu.Unlock()
		distributed++
	}

	return distributed, nil
}

// wellFormed checks a numeric prize against its tier width. maDB is free-form.
func wellFormed(field, value string) bool {
	digits := lottery.FieldDigits(field)
	if digits == 0 {
		return true
	}
	if len(value) != digits {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Forget drops the poll history of date.
func (p *Poller) Forget(date string) {
	p.mu.Lock()
	delete(p.seen, date)
	p.mu.Unlock()
}

func (p *Poller) Close() error {
	return p.client.Close()
}
