package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/katatrina/xsmb-live/internal/event"
	"github.com/katatrina/xsmb-live/internal/lottery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State là trạng thái vòng đời của một phiên SSE.
type State int

const (
	StateConnecting State = iota
	StateReconciling
	StateStreaming
	StateReplaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReconciling:
		return "reconciling"
	case StateStreaming:
		return "streaming"
	case StateReplaying:
		return "replaying"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// KeepAliveComment is the SSE comment written on every liveness pulse.
const KeepAliveComment = "keep-alive"

var ErrSessionState = errors.New("invalid session state")

// Writer is the transport a session emits on. Each call must reach the client
// before it returns (i.e. it flushes).
type Writer interface {
	WriteEvent(name string, data []byte) error
	WriteComment(comment string) error
}

// Session is one client connection bound to a single draw date for its lifetime.
type Session struct {
	ID      string
	Date    string
	Station string

	service *Service
	writer  Writer
	logger  zerolog.Logger

	mu       sync.Mutex
	state    State
	client   *event.Client
	snapshot lottery.Snapshot
}

// NewSession creates a session in StateConnecting.
func (s *Service) NewSession(date, station string, writer Writer) *Session {
	id := uuid.NewString()
	return &Session{
		ID:      id,
		Date:    date,
		Station: station,
		service: s,
		writer:  writer,
		logger:  log.With().Str("session_id", id).Str("draw_date", date).Logger(),
		state:   StateConnecting,
	}
}

// State returns the current lifecycle state.
func (ss *Session) State() State {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.state
}

func (ss *Session) transition(from, to State) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.state != from {
		return fmt.Errorf("%w: %s -> %s while %s", ErrSessionState, from, to, ss.state)
	}
	ss.state = to
	ss.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("session state changed")
	return nil
}

// Open subscribes to the draw date and then reads the reconciled snapshot.
// Subscribing first means every write the snapshot misses is still delivered
// through the subscription. On error the session is closed and nothing has
// been written to the client.
func (ss *Session) Open(ctx context.Context) error {
	if err := ss.transition(StateConnecting, StateReconciling); err != nil {
		return err
	}

	client, err := ss.service.sender.Register(ctx, ss.Date)
	if err != nil {
		ss.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	ss.mu.Lock()
	ss.client = client
	ss.mu.Unlock()

	snapshot, err := ss.service.Snapshot(ctx, ss.Date, ss.Station)
	if err != nil {
		ss.Close()
		return err
	}
	ss.snapshot = snapshot
	return nil
}

// Run emits the reconciled snapshot, then forwards live events and liveness
// pulses until ctx is done or the writer fails. It always leaves the session closed.
func (ss *Session) Run(ctx context.Context) error {
	defer ss.Close()

	if ss.State() != StateReconciling {
		return fmt.Errorf("%w: run while %s", ErrSessionState, ss.State())
	}

	if err := ss.bootstrap(ctx); err != nil {
		return err
	}

	if err := ss.transition(StateReconciling, StateStreaming); err != nil {
		return err
	}

	ticker := ss.service.clock.NewTicker(ss.service.keepAlive)
	defer ticker.Stop()

	events := ss.client.Events()
	for {
		select {
		case <-ctx.Done():
			ss.logger.Info().Msg("client disconnected")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := ss.emit(ev); err != nil {
				return err
			}
		case <-ticker.Chan():
			if err := ss.writer.WriteComment(KeepAliveComment); err != nil {
				return fmt.Errorf("failed to write keep-alive: %w", err)
			}
		}
	}
}

// bootstrap gửi toàn bộ các giải theo thứ tự chuẩn với giá trị hiện có.
// A placeholder is re-checked against the store first: if the field was
// revealed after the snapshot read, the placeholder is skipped and the real
// value arrives through the subscription instead.
func (ss *Session) bootstrap(ctx context.Context) error {
	for _, field := range lottery.Fields() {
		ev := ss.snapshot.Event(field)

		if ev.Value == lottery.Sentinel {
			current, ok, err := ss.service.store.GetField(ctx, ss.Date, field)
			if err != nil {
				ss.logger.Warn().Err(err).Str("field", field).Msg("failed to re-check field")
			} else if ok && lottery.IsRevealed(current) {
				continue
			}
		}

		if err := ss.emit(ev); err != nil {
			return err
		}
	}
	return nil
}

func (ss *Session) emit(ev lottery.RevealEvent) error {
	data, err := ev.ClientPayload()
	if err != nil {
		// Không thể xảy ra với dữ liệu chuỗi; bỏ qua sự kiện thay vì đóng phiên.
		ss.logger.Error().Err(err).Str("field", ev.Field).Msg("failed to encode event")
		return nil
	}
	if err := ss.writer.WriteEvent(ev.Field, data); err != nil {
		return fmt.Errorf("failed to write event %s: %w", ev.Field, err)
	}
	return nil
}

// Replay chạy chế độ mô phỏng: không dùng broker, tự publish bộ kết quả mẫu
// và chuyển từng giải tới client ngay khi phát, sau đó kết thúc phiên.
func (ss *Session) Replay(ctx context.Context) error {
	defer ss.Close()

	if err := ss.transition(StateConnecting, StateReplaying); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	err := ss.service.simulator.Run(ctx, ss.Date, ss.service.DefaultMetadata(ss.Station), func(ev lottery.RevealEvent) {
		if writeErr != nil {
			return
		}
		if writeErr = ss.emit(ev); writeErr != nil {
			cancel()
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close releases the subscription. It is safe to call more than once.
func (ss *Session) Close() {
	ss.mu.Lock()
	if ss.state == StateClosed {
		ss.mu.Unlock()
		return
	}
	ss.state = StateClosed
	client := ss.client
	ss.client = nil
	ss.mu.Unlock()

	if client != nil {
		ss.service.sender.Unregister(client)
	}
	ss.logger.Debug().Msg("session closed")
}
