// internal/session/reduce.go

package session

import (
	"errors"
	"slices"
	"strconv"

	"atm/internal/cashbox"
	"atm/internal/pin"
)

// Reduce 是純函式的狀態轉移：(Session, Event) → (Session, Effect)。
// 傳入的 Session 不會被修改。
//
// 已結束（Done）的 Session 忽略所有事件，包括遲到的 PIN 驗證回覆；
// 要繼續操作必須開新的 Session。
func Reduce(s Session, ev Event) (Session, Effect) {
	s = s.Clone()
	if s.Done {
		return s, nil
	}

	switch e := ev.(type) {
	case Digit:
		return s.digit(e.Value)

	case Clear:
		// 有錯誤或剛出鈔時停用 Clear
		if s.Error == "" && len(s.DispensedNotes) == 0 && s.KeyLog != "" {
			s.KeyLog = s.KeyLog[:len(s.KeyLog)-1]
		}

	case Cancel:
		s.KeyLog = ""
		s.Error = ""
		s.DispensedNotes = nil
		s.Done = true

	case Enter:
		return s.enter()

	case PINAccepted:
		s.Balance = e.Balance
		s.KeyLog = ""
		s.Error = ""
		s.Authenticated = true
		s.PINAttempts = 0

	case PINRejected:
		s.KeyLog = ""
		// 只有 PIN 錯誤計入次數；服務端或傳輸失敗讓使用者免費重試
		switch pin.Classify(e.Err) {
		case pin.FailureCredentialsRejected:
			if s.PINAttempts < MaxPINAttempts {
				s.PINAttempts++
			}
			if s.PINAttempts >= MaxPINAttempts {
				s.CardLocked = true
			}
		}

	case Dispensed:
		s.Balance -= e.Amount
		s.DispensedNotes = slices.Clone(e.Notes)

	case DispenseFailed:
		s.KeyLog = ""
		s.Error = userMessage(e.Err)
	}

	return s, nil
}

func (s Session) digit(v int) (Session, Effect) {
	if v < 0 || v > 9 {
		return s, nil
	}

	if !s.Authenticated {
		if s.CardLocked || s.PINAttempts >= MaxPINAttempts || len(s.KeyLog) >= PINDigits {
			return s, nil
		}
		s.KeyLog += strconv.Itoa(v)
		if len(s.KeyLog) == PINDigits {
			return s, ValidatePIN{PIN: s.KeyLog}
		}
		return s, nil
	}

	if s.Error == "" && len(s.DispensedNotes) == 0 && len(s.KeyLog) < MaxAmountDigits {
		s.KeyLog += strconv.Itoa(v)
	}
	return s, nil
}

func (s Session) enter() (Session, Effect) {
	if !s.Authenticated {
		return s, nil
	}

	// 錯誤後重試，或出鈔後繼續提款
	if s.Error != "" || len(s.DispensedNotes) > 0 {
		return s.resetToWithdrawal(), nil
	}

	amount, err := cashbox.ParseAmount(s.KeyLog)
	if err != nil {
		s.KeyLog = ""
		s.Error = userMessage(err)
		return s, nil
	}
	if amount == 0 {
		return s, nil
	}
	return s, Dispense{Amount: amount, Balance: s.Balance}
}

// resetToWithdrawal 清掉輸入、錯誤與出鈔結果；餘額與驗證狀態不變。
func (s Session) resetToWithdrawal() Session {
	s.KeyLog = ""
	s.Error = ""
	s.DispensedNotes = nil
	return s
}

// userFacing 為會直接顯示在螢幕上的錯誤。
var userFacing = []error{
	cashbox.ErrInvalidInput,
	cashbox.ErrInvalidAmount,
	cashbox.ErrInsufficientFunds,
	cashbox.ErrInsufficientInventory,
}

// userMessage 取出包裝鏈中第一個可顯示的錯誤訊息，診斷細節不上螢幕。
func userMessage(err error) string {
	for _, known := range userFacing {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
