package pin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// stubService 回傳固定狀態碼與 body，並記錄收到幾次請求與最後一個 PIN。
func stubService(t *testing.T, status int, body string) (*httptest.Server, *int32, *atomic.Value) {
	t.Helper()
	var calls int32
	var lastPIN atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			PIN string `json:"pin"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		lastPIN.Store(req.PIN)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls, &lastPIN
}

func TestValidateRejectsNonNumericPIN(t *testing.T) {
	ts, calls, _ := stubService(t, http.StatusOK, `{"currentBalance":220}`)
	v := NewHTTPValidator(ts.URL)

	for _, p := range []string{"abcd", "12ab", "123", "12345", ""} {
		_, err := v.Validate(context.Background(), p)
		assert.ErrorIs(t, err, ErrInvalidPIN, "pin=%q", p)
		assert.Equal(t, FailureInvalidPIN, Classify(err))
	}
	assert.Zero(t, atomic.LoadInt32(calls), "invalid PINs must not reach the service")
}

func TestValidateReturnsBalance(t *testing.T) {
	ts, _, lastPIN := stubService(t, http.StatusOK, `{"currentBalance":220}`)
	v := NewHTTPValidator(ts.URL)

	balance, err := v.Validate(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, 220, balance)
	assert.Equal(t, "1234", lastPIN.Load())
}

func TestValidateAcceptsNumericStringBalance(t *testing.T) {
	ts, _, _ := stubService(t, http.StatusOK, `{"currentBalance":"-35.9"}`)
	balance, err := NewHTTPValidator(ts.URL).Validate(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, -35, balance)
}

func TestValidateMalformedResponses(t *testing.T) {
	for _, body := range []string{
		`{"yellowFruit":"Banana"}`,
		`{"currentBalance":"Banana"}`,
		`{"currentBalance":true}`,
		`not json`,
	} {
		ts, _, _ := stubService(t, http.StatusOK, body)
		_, err := NewHTTPValidator(ts.URL).Validate(context.Background(), "1234")
		assert.ErrorIs(t, err, ErrServiceUnavailable, "body=%s", body)
		assert.Equal(t, FailureServiceUnavailable, Classify(err))
	}
}

func TestValidateForbiddenIsCredentialsRejected(t *testing.T) {
	ts, _, _ := stubService(t, http.StatusForbidden, `{}`)
	_, err := NewHTTPValidator(ts.URL).Validate(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrCredentialsRejected)
	assert.Equal(t, FailureCredentialsRejected, Classify(err))
}

func TestValidateServerErrorIsTransient(t *testing.T) {
	ts, _, _ := stubService(t, http.StatusInternalServerError, `{}`)
	_, err := NewHTTPValidator(ts.URL).Validate(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.NotErrorIs(t, err, ErrCredentialsRejected)
}

func TestValidateTransportError(t *testing.T) {
	ts, _, _ := stubService(t, http.StatusOK, `{}`)
	url := ts.URL
	ts.Close()

	_, err := NewHTTPValidator(url).Validate(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	ts, calls, _ := stubService(t, http.StatusInternalServerError, `{}`)
	v := NewHTTPValidator(ts.URL, WithBreaker(BreakerSettings{
		ConsecutiveFailures: 2,
		Timeout:             time.Minute,
		MaxRequests:         1,
	}))

	for i := 0; i < 2; i++ {
		_, err := v.Validate(context.Background(), "1234")
		require.ErrorIs(t, err, ErrServiceUnavailable)
	}
	assert.Equal(t, "open", v.BreakerState())

	_, err := v.Validate(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), atomic.LoadInt32(calls), "open breaker must short-circuit")
}

// 使用者輸錯 PIN 不應讓斷路器開啟
func TestBreakerIgnoresCredentialRejections(t *testing.T) {
	ts, calls, _ := stubService(t, http.StatusForbidden, `{}`)
	v := NewHTTPValidator(ts.URL, WithBreaker(BreakerSettings{ConsecutiveFailures: 1, Timeout: time.Minute, MaxRequests: 1}))

	for i := 0; i < 3; i++ {
		_, err := v.Validate(context.Background(), "1234")
		require.ErrorIs(t, err, ErrCredentialsRejected)
	}
	assert.Equal(t, "closed", v.BreakerState())
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestValidateRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	ts, _, _ := stubService(t, http.StatusForbidden, `{}`)

	_, _ = NewHTTPValidator(ts.URL, WithTracer(tp.Tracer("test"))).Validate(context.Background(), "1234")

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pin.Validate", spans[0].Name())
	var failure string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "pin.failure" {
			failure = kv.Value.AsString()
		}
	}
	assert.Equal(t, "credentials_rejected", failure)
}

func TestValidatorFunc(t *testing.T) {
	var v Validator = ValidatorFunc(func(_ context.Context, p string) (int, error) {
		if p == "1111" {
			return 50, nil
		}
		return 0, ErrCredentialsRejected
	})
	balance, err := v.Validate(context.Background(), "1111")
	require.NoError(t, err)
	assert.Equal(t, 50, balance)
	_, err = v.Validate(context.Background(), "2222")
	assert.ErrorIs(t, err, ErrCredentialsRejected)
}

func TestClassifyUnknownErrorIsTransient(t *testing.T) {
	assert.Equal(t, FailureNone, Classify(nil))
	assert.Equal(t, FailureServiceUnavailable, Classify(errors.New("boom")))
}
