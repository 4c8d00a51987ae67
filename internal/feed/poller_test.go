package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/katatrina/xsmb-live/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDistributor struct {
	mu       sync.Mutex
	payloads []worker.PayloadRevealField
	err      error
}

func (d *fakeDistributor) DistributeTaskRevealField(ctx context.Context, payload *worker.PayloadRevealField, opts ...asynq.Option) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.payloads = append(d.payloads, *payload)
	return nil
}

func (d *fakeDistributor) Close() error { return nil }

func (d *fakeDistributor) Fields() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, p := range d.payloads {
		out = append(out, p.Field)
	}
	return out
}

type upstream struct {
	mu     sync.Mutex
	fields map[string]string
	date   string
}

func (u *upstream) set(field, value string) {
	u.mu.Lock()
	u.fields[field] = value
	u.mu.Unlock()
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.date = r.URL.Query().Get("date")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(UpstreamResult{Fields: u.fields, Metadata: testMeta})
}

func newUpstream(t *testing.T) (*upstream, *httptest.Server) {
	u := &upstream{fields: map[string]string{}}
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)
	return u, srv
}

func TestPollDistributesNewValuesInOrder(t *testing.T) {
	u, srv := newUpstream(t)
	u.set("secondPrize_0", "67890")
	u.set("firstPrize_0", "12345")
	u.set("threePrizes_0", lottery.Sentinel)
	u.set("eightPrizes_0", "1")

	d := &fakeDistributor{}
	p := NewPoller(srv.URL, time.Second, d)
	defer p.Close()

	n, err := p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"firstPrize_0", "secondPrize_0"}, d.Fields())
	assert.Equal(t, "01-01-2025", u.date)
	assert.Equal(t, testMeta, d.payloads[0].Metadata)

	// Không phân phối lại giá trị không đổi.
	n, err = p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Zero(t, n)

	u.set("secondPrize_1", "24680")
	n, err = p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"firstPrize_0", "secondPrize_0", "secondPrize_1"}, d.Fields())

	p.Forget("01-01-2025")
	n, err = p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPollRetriesFailedDistribution(t *testing.T) {
	u, srv := newUpstream(t)
	u.set("firstPrize_0", "12345")

	d := &fakeDistributor{err: errors.New("queue down")}
	p := NewPoller(srv.URL, time.Second, d)
	defer p.Close()

	n, err := p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Zero(t, n)

	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()

	n, err = p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPollUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPoller(srv.URL, time.Second, &fakeDistributor{})
	defer p.Close()

	_, err := p.Poll(context.Background(), "01-01-2025")
	assert.Error(t, err)
}

func TestPollSkipsMalformedValues(t *testing.T) {
	u, srv := newUpstream(t)
	u.set("firstPrize_0", "123")
	u.set("secondPrize_0", "6789x")
	u.set("sevenPrizes_0", "12")
	u.set("maDB", "1KZ-6KZ-14KZ")

	d := &fakeDistributor{}
	p := NewPoller(srv.URL, time.Second, d)
	defer p.Close()

	n, err := p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"sevenPrizes_0", "maDB"}, d.Fields())

	// Giá trị được sửa ở lần poll sau sẽ được phân phối.
	u.set("firstPrize_0", "12345")
	n, err = p.Poll(context.Background(), "01-01-2025")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
