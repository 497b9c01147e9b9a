// internal/pin/errors.go
//
// PIN 驗證的錯誤集合是封閉的：驗證器只會回傳（或包裝）下列三種錯誤之一。
// 只有 ErrCredentialsRejected 會計入鎖卡次數，其餘都視為可重試的暫時性失敗。

package pin

import "errors"

var (
	// ErrInvalidPIN 代表 PIN 不是 4 位數字，請求不會送出。
	ErrInvalidPIN = errors.New("Input is invalid")

	// ErrCredentialsRejected 代表遠端服務判定 PIN 錯誤（HTTP 403）。
	ErrCredentialsRejected = errors.New("pin rejected")

	// ErrServiceUnavailable 代表服務端或傳輸層失敗：非 403 的錯誤狀態碼、回應格式錯誤、
	// 網路錯誤或斷路器開啟。
	ErrServiceUnavailable = errors.New("pin service unavailable")
)

// Failure 是驗證失敗的分類。
type Failure int

const (
	FailureNone Failure = iota
	FailureInvalidPIN
	FailureCredentialsRejected
	FailureServiceUnavailable
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureInvalidPIN:
		return "invalid_pin"
	case FailureCredentialsRejected:
		return "credentials_rejected"
	default:
		return "service_unavailable"
	}
}

// Classify 把任意驗證錯誤歸入封閉的分類；不認得的錯誤一律算暫時性失敗。
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrCredentialsRejected):
		return FailureCredentialsRejected
	case errors.Is(err, ErrInvalidPIN):
		return FailureInvalidPIN
	default:
		return FailureServiceUnavailable
	}
}
