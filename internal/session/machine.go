// internal/session/machine.go

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"atm/internal/cashbox"
	"atm/internal/pin"
)

// Dispenser 為出鈔端，*cashbox.CashBox 滿足此介面。
type Dispenser interface {
	Dispense(requested, balance int) ([]int, error)
	Inventory() cashbox.Inventory
}

// Machine 持有目前的 Session，並執行 Reduce 要求的副作用。
// 所有狀態變更都在 mu 之下進行；PIN 驗證在背景 goroutine 執行，
// 回覆時若 Session 已換新或已有更新的驗證請求，結果直接丟棄。
type Machine struct {
	mu        sync.Mutex
	id        uuid.UUID
	session   Session
	seq       uint64 // 最近一次送出的驗證序號
	dispenser Dispenser
	validator pin.Validator
	timeout   time.Duration
	logger    *zap.Logger
	tracer    trace.Tracer
	wg        sync.WaitGroup
}

// Option 調整 Machine。
type Option func(*Machine)

// WithLogger 指定 logger。
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithTracer 指定 tracer。
func WithTracer(t trace.Tracer) Option {
	return func(m *Machine) { m.tracer = t }
}

// WithValidationTimeout 指定單次 PIN 驗證的逾時（預設 10 秒）。
func WithValidationTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// NewMachine 建立 Machine 並開始第一個 Session。
func NewMachine(d Dispenser, v pin.Validator, opts ...Option) *Machine {
	m := &Machine{
		id:        uuid.New(),
		dispenser: d,
		validator: v,
		timeout:   10 * time.Second,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("atm/internal/session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m
}

// Digit / Clear / Cancel / Enter 為鍵盤操作，立即返回不等待結果。
func (m *Machine) Digit(v int) { m.Dispatch(context.Background(), Digit{Value: v}) }
func (m *Machine) Clear()      { m.Dispatch(context.Background(), Clear{}) }
func (m *Machine) Cancel()     { m.Dispatch(context.Background(), Cancel{}) }
func (m *Machine) Enter()      { m.Dispatch(context.Background(), Enter{}) }

// Dispatch 把事件套用到目前的 Session。ctx 只用於 tracing 的父 span。
func (m *Machine) Dispatch(ctx context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(ctx, ev)
}

// Snapshot 回傳目前 Session 的拷貝。
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

// ID 回傳目前 Session 的識別碼。
func (m *Machine) ID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Inventory 回傳鈔匣存量。
func (m *Machine) Inventory() cashbox.Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispenser.Inventory()
}

// NewSession 丟棄目前 Session（含進行中的驗證結果）並開始新的一個。
// 鈔匣存量跨 Session 保留。
func (m *Machine) NewSession() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.id
	m.id = uuid.New()
	m.session = Session{}
	m.seq++
	m.logger.Info("session started",
		zap.String("session_id", m.id.String()),
		zap.String("previous_session_id", prev.String()))
	return m.id
}

// Wait 等待所有進行中的 PIN 驗證完成。
func (m *Machine) Wait() {
	m.wg.Wait()
}

// apply 必須在持有 mu 時呼叫。
func (m *Machine) apply(ctx context.Context, ev Event) {
	before := m.session.State()
	next, effect := Reduce(m.session, ev)
	m.session = next

	if after := next.State(); after != before {
		m.logger.Debug("session state changed",
			zap.String("session_id", m.id.String()),
			zap.String("event", eventName(ev)),
			zap.Stringer("from", before),
			zap.Stringer("to", after))
	}

	switch e := effect.(type) {
	case ValidatePIN:
		m.validate(ctx, e.PIN)
	case Dispense:
		m.dispense(ctx, e)
	}
}

func (m *Machine) validate(ctx context.Context, p string) {
	m.seq++
	seq, id := m.seq, m.id
	link := trace.LinkFromContext(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		// 驗證不綁定觸發它的請求生命週期，只保留 trace 關聯
		vctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		vctx, span := m.tracer.Start(vctx, "session.ValidatePIN", trace.WithLinks(link))
		defer span.End()

		balance, err := m.validator.Validate(vctx, p)

		m.mu.Lock()
		defer m.mu.Unlock()
		if id != m.id || seq != m.seq {
			span.SetAttributes(attribute.Bool("pin.stale", true))
			m.logger.Info("stale pin validation dropped", zap.String("session_id", id.String()))
			return
		}
		if err != nil {
			span.SetStatus(codes.Error, pin.Classify(err).String())
			m.apply(vctx, PINRejected{Err: err})
			return
		}
		m.apply(vctx, PINAccepted{Balance: balance})
	}()
}

func (m *Machine) dispense(ctx context.Context, req Dispense) {
	ctx, span := m.tracer.Start(ctx, "session.Dispense",
		trace.WithAttributes(attribute.Int("atm.amount", req.Amount)))
	defer span.End()

	notes, err := m.dispenser.Dispense(req.Amount, req.Balance)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		fields := []zap.Field{
			zap.String("session_id", m.id.String()),
			zap.Int("amount", req.Amount),
			zap.Error(err),
		}
		if errors.Is(err, cashbox.ErrDispenseStalled) {
			// 鈔匣狀態與演算法假設不符，需要人工檢查
			m.logger.Error("dispense stalled", append(fields, zap.Any("inventory", m.dispenser.Inventory()))...)
		} else {
			m.logger.Info("dispense refused", fields...)
		}
		m.apply(ctx, DispenseFailed{Err: err})
		return
	}

	span.SetAttributes(attribute.Int("atm.notes", len(notes)))
	m.logger.Info("cash dispensed",
		zap.String("session_id", m.id.String()),
		zap.Int("amount", req.Amount),
		zap.Ints("notes", notes))
	m.apply(ctx, Dispensed{Amount: req.Amount, Notes: notes})
}
