// internal/session/event.go

package session

import (
	"errors"
	"fmt"
	"strings"
)

// Event 是狀態機的輸入。鍵盤事件（Digit/Clear/Cancel/Enter）來自使用者，
// 其餘是外部協作者的回覆。
type Event interface {
	isEvent()
}

// Digit 為按下數字鍵 0–9。
type Digit struct{ Value int }

// Clear 刪除最後一個輸入字元。
type Clear struct{}

// Cancel 結束互動。
type Cancel struct{}

// Enter 確認金額，或在錯誤/出鈔後回到提款畫面。
type Enter struct{}

// PINAccepted 為 PIN 驗證成功，附帶帳戶餘額。
type PINAccepted struct{ Balance int }

// PINRejected 為 PIN 驗證失敗；Err 屬於 pin 套件的封閉錯誤集合。
type PINRejected struct{ Err error }

// Dispensed 為出鈔成功。
type Dispensed struct {
	Amount int
	Notes  []int
}

// DispenseFailed 為出鈔失敗（可行性檢查或內部錯誤）。
type DispenseFailed struct{ Err error }

func (Digit) isEvent()          {}
func (Clear) isEvent()          {}
func (Cancel) isEvent()         {}
func (Enter) isEvent()          {}
func (PINAccepted) isEvent()    {}
func (PINRejected) isEvent()    {}
func (Dispensed) isEvent()      {}
func (DispenseFailed) isEvent() {}

// eventName 給 log 使用；刻意不含 Digit 的值，避免 PIN 進 log。
func eventName(ev Event) string {
	switch ev.(type) {
	case Digit:
		return "digit"
	case Clear:
		return "clear"
	case Cancel:
		return "cancel"
	case Enter:
		return "enter"
	case PINAccepted:
		return "pin_accepted"
	case PINRejected:
		return "pin_rejected"
	case Dispensed:
		return "dispensed"
	case DispenseFailed:
		return "dispense_failed"
	default:
		return fmt.Sprintf("%T", ev)
	}
}

// Effect 是 Reduce 要求執行的副作用。nil 代表不需要。
type Effect interface {
	isEffect()
}

// ValidatePIN 要求以 PIN 呼叫驗證器（非同步）。
type ValidatePIN struct{ PIN string }

// Dispense 要求鈔匣出鈔（同步）。
type Dispense struct {
	Amount  int
	Balance int
}

func (ValidatePIN) isEffect() {}
func (Dispense) isEffect()    {}

// ErrUnknownKey 代表鍵盤按鍵名稱無法辨識。
var ErrUnknownKey = errors.New("unknown key")

// ParseKey 把按鍵名稱（"0"–"9"、"clear"、"cancel"、"enter"）轉成鍵盤事件。
func ParseKey(key string) (Event, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if len(k) == 1 && k[0] >= '0' && k[0] <= '9' {
		return Digit{Value: int(k[0] - '0')}, nil
	}
	switch k {
	case "clear":
		return Clear{}, nil
	case "cancel":
		return Cancel{}, nil
	case "enter":
		return Enter{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}
