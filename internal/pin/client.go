// internal/pin/client.go

// Package pin 負責 PIN 驗證：把 4 位數 PIN 送到遠端銀行服務，成功時取回帳戶餘額。
//
// 傳輸協定：POST {url}，body 為 {"pin":"1234"}；
//   - 200 且 body 含 currentBalance（數字或數字字串）→ 驗證成功
//   - 403 → ErrCredentialsRejected
//   - 其他狀態碼、格式錯誤、網路錯誤 → ErrServiceUnavailable
//
// 所有請求都經過斷路器（sony/gobreaker）；403 對斷路器而言算成功，
// 避免使用者連續輸錯 PIN 就把服務判成故障。
package pin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Digits 為 PIN 長度。
const Digits = 4

// maxBody 限制回應 body 的讀取量。
const maxBody = 1 << 16

// Validator 以 PIN 換取帳戶餘額。錯誤一律屬於本套件定義的封閉集合。
type Validator interface {
	Validate(ctx context.Context, pin string) (int, error)
}

// ValidatorFunc 讓一般函式滿足 Validator。
type ValidatorFunc func(ctx context.Context, pin string) (int, error)

// Validate 呼叫 f 本身。
func (f ValidatorFunc) Validate(ctx context.Context, pin string) (int, error) {
	return f(ctx, pin)
}

// CheckFormat 確認 PIN 為 4 位十進位數字。
func CheckFormat(pin string) error {
	if len(pin) != Digits {
		return fmt.Errorf("%w: want %d digits, got %d", ErrInvalidPIN, Digits, len(pin))
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// BreakerSettings 為斷路器參數。
type BreakerSettings struct {
	ConsecutiveFailures uint32        // 連續失敗幾次後開啟
	Timeout             time.Duration // 開啟後多久進入半開
	MaxRequests         uint32        // 半開時允許的試探請求數
}

// DefaultBreakerSettings 回傳預設斷路器參數。
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, Timeout: 30 * time.Second, MaxRequests: 1}
}

// HTTPValidator 透過 HTTP 呼叫遠端 PIN 服務。
type HTTPValidator struct {
	url      string
	client   *http.Client
	settings BreakerSettings
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option 調整 HTTPValidator。
type Option func(*HTTPValidator)

// WithHTTPClient 指定 HTTP client（預設 10 秒逾時）。
func WithHTTPClient(c *http.Client) Option {
	return func(v *HTTPValidator) { v.client = c }
}

// WithLogger 指定 logger。
func WithLogger(l *zap.Logger) Option {
	return func(v *HTTPValidator) { v.logger = l }
}

// WithTracer 指定 tracer（預設使用全域 TracerProvider）。
func WithTracer(t trace.Tracer) Option {
	return func(v *HTTPValidator) { v.tracer = t }
}

// WithBreaker 指定斷路器參數。
func WithBreaker(s BreakerSettings) Option {
	return func(v *HTTPValidator) { v.settings = s }
}

// NewHTTPValidator 建立指向 url 的驗證器。
func NewHTTPValidator(url string, opts ...Option) *HTTPValidator {
	v := &HTTPValidator{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		settings: DefaultBreakerSettings(),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("atm/internal/pin"),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = zap.NewNop()
	}

	s := v.settings
	v.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pin-service",
		MaxRequests: s.MaxRequests,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCredentialsRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			v.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return v
}

// BreakerState 回傳斷路器目前狀態（closed / half-open / open）。
func (v *HTTPValidator) BreakerState() string {
	return v.breaker.State().String()
}

// Validate 驗證 PIN 並回傳餘額。格式錯誤的 PIN 不會送出請求。
func (v *HTTPValidator) Validate(ctx context.Context, pin string) (int, error) {
	ctx, span := v.tracer.Start(ctx, "pin.Validate")
	defer span.End()

	balance, err := v.validate(ctx, pin)
	if err != nil {
		failure := Classify(err)
		span.SetAttributes(attribute.String("pin.failure", failure.String()))
		span.SetStatus(codes.Error, failure.String())
		v.logger.Info("pin validation failed", zap.String("failure", failure.String()), zap.Error(err))
		return 0, err
	}
	return balance, nil
}

func (v *HTTPValidator) validate(ctx context.Context, pin string) (int, error) {
	if err := CheckFormat(pin); err != nil {
		return 0, err
	}

	res, err := v.breaker.Execute(func() (interface{}, error) {
		return v.post(ctx, pin)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
		}
		return 0, err
	}
	return res.(int), nil
}

type request struct {
	PIN string `json:"pin"`
}

type response struct {
	CurrentBalance any `json:"currentBalance"`
}

func (v *HTTPValidator) post(ctx context.Context, pin string) (int, error) {
	body, err := json.Marshal(request{PIN: pin})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return 0, ErrCredentialsRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: malformed response: %w", ErrServiceUnavailable, err)
	}
	balance, err := parseBalance(out.CurrentBalance)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return balance, nil
}

// parseBalance 接受數字或數字字串，只取整數部分。
func parseBalance(v any) (int, error) {
	var f float64
	switch b := v.(type) {
	case float64:
		f = b
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid currentBalance %q", b)
		}
		f = parsed
	case nil:
		return 0, errors.New("missing currentBalance")
	default:
		return 0, fmt.Errorf("invalid currentBalance type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("currentBalance out of range: %v", v)
	}
	return int(f), nil
}
