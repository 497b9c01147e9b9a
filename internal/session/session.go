// internal/session/session.go

// Package session 為提款機的交易狀態機。
//
// Session 是唯一可變的交易狀態；每個事件經 Reduce 轉成新的 Session，
// 需要外部協作者（PIN 驗證、出鈔）時 Reduce 只回傳一個 Effect，
// 由 Machine 執行後再把結果當成事件餵回來。Reduce 本身不碰任何 I/O。
package session

import "slices"

const (
	PINDigits       = 4 // PIN 長度
	MaxPINAttempts  = 3 // 連續輸錯幾次後鎖卡
	MaxAmountDigits = 4 // 提款金額最多幾位數
)

// Session 為一次插卡互動的完整狀態。
// KeyLog 在驗證前存 PIN，驗證後存提款金額。
type Session struct {
	KeyLog         string `json:"keyLog"`
	Balance        int    `json:"balance"`
	PINAttempts    int    `json:"pinAttempts"`
	Authenticated  bool   `json:"isAuthenticated"`
	CardLocked     bool   `json:"isCardLocked"`
	DispensedNotes []int  `json:"dispensedNotes"`
	Error          string `json:"error"`
	Done           bool   `json:"done"`
}

// Clone 回傳深拷貝（DispensedNotes 不共用底層陣列）。
func (s Session) Clone() Session {
	s.DispensedNotes = slices.Clone(s.DispensedNotes)
	return s
}

// State 是由 Session 欄位推導出的狀態，不另外儲存。
type State int

const (
	StateEnteringPIN State = iota
	StateValidatingPIN
	StatePINLocked
	StateEnteringAmount
	StateAwaitingDispenseRetry
	StateSessionDone
)

var stateNames = map[State]string{
	StateEnteringPIN:           "entering_pin",
	StateValidatingPIN:         "validating_pin",
	StatePINLocked:             "pin_locked",
	StateEnteringAmount:        "entering_amount",
	StateAwaitingDispenseRetry: "awaiting_dispense_retry",
	StateSessionDone:           "session_done",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText 讓 State 以名稱輸出到 JSON。
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State 依欄位推導目前狀態。
func (s Session) State() State {
	switch {
	case s.Done:
		return StateSessionDone
	case !s.Authenticated && s.CardLocked:
		return StatePINLocked
	case !s.Authenticated && len(s.KeyLog) == PINDigits:
		return StateValidatingPIN
	case !s.Authenticated:
		return StateEnteringPIN
	case s.Error != "" || len(s.DispensedNotes) > 0:
		return StateAwaitingDispenseRetry
	default:
		return StateEnteringAmount
	}
}
