// internal/display/display.go

// Package display 把 Session 快照轉成螢幕上的四行文字。只讀不寫。
package display

import (
	"fmt"
	"strings"

	"atm/internal/session"
)

// DefaultCurrency 為預設貨幣符號。
const DefaultCurrency = "£"

const (
	welcomeText          = "Welcome"
	enterPINText         = "Please enter your 4 digit PIN:"
	invalidPINText       = "PIN is incorrect"
	tryAgainText         = "Try again"
	sorryText            = "Sorry, too many incorrect PIN attempts"
	cashWithdrawalText   = "Withdraw Cash"
	currentBalanceText   = "Current Balance:"
	pressEnterRetryText  = `Please press "Enter" to retry or "Cancel" to finish`
	pressEnterOrCancel   = `Press "Enter" to withdraw more cash or "Cancel" to finish`
	dispensingCashText   = "Dispensing Cash"
	dispensingText       = "Dispensing"
	overdrawnText        = "*** You are now overdrawn ***"
	thanksText           = "Thank You"
	enterAmountTextShape = `Please enter amount to withdraw, in multiples of %s10, then press "Enter"`
)

// Screen 為螢幕的四個區塊。
type Screen struct {
	Heading string `json:"heading"`
	Info    string `json:"info"`
	Prompt  string `json:"prompt"`
	Action  string `json:"action"`
}

// String 以換行串接非空白的區塊，供終端機使用。
func (s Screen) String() string {
	lines := make([]string, 0, 4)
	for _, l := range []string{s.Heading, s.Info, s.Prompt, s.Action} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

// Renderer 依貨幣符號產生畫面。
type Renderer struct {
	Currency string
}

// New 建立 Renderer；currency 為空時使用 DefaultCurrency。
func New(currency string) Renderer {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Renderer{Currency: currency}
}

// Render 依 Session 狀態產生畫面。
func (r Renderer) Render(s session.Session) Screen {
	cur := r.Currency
	if cur == "" {
		cur = DefaultCurrency
	}

	switch {
	case s.Done:
		return Screen{Heading: thanksText}

	case !s.Authenticated && s.CardLocked:
		return Screen{Heading: invalidPINText, Prompt: sorryText}

	case !s.Authenticated:
		scr := Screen{
			Heading: welcomeText,
			Prompt:  enterPINText,
			Action:  strings.Repeat("* ", len(s.KeyLog)),
		}
		if s.PINAttempts > 0 {
			scr.Heading = invalidPINText
			scr.Info = tryAgainText
		}
		return scr

	case s.Error != "":
		return Screen{Heading: cashWithdrawalText, Info: s.Error, Prompt: pressEnterRetryText}

	case len(s.DispensedNotes) == 0:
		return Screen{
			Heading: cashWithdrawalText,
			Info:    fmt.Sprintf("%s %s%d", currentBalanceText, cur, s.Balance),
			Prompt:  fmt.Sprintf(enterAmountTextShape, cur),
			Action:  cur + s.KeyLog,
		}

	default:
		scr := Screen{
			Heading: dispensingCashText,
			Prompt:  pressEnterOrCancel,
			Action:  fmt.Sprintf("%s %s%s: %s", dispensingText, cur, s.KeyLog, NoteSummary(s.DispensedNotes, cur)),
		}
		if s.Balance < 0 {
			scr.Info = overdrawnText
		}
		return scr
	}
}

// NoteSummary 以「張數x面額」列出各面額，例如 "3x£20 1x£10"；沒出到的面額略過。
func NoteSummary(notes []int, currency string) string {
	parts := make([]string, 0, 3)
	for _, value := range []int{20, 10, 5} {
		n := 0
		for _, note := range notes {
			if note == value {
				n++
			}
		}
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%dx%s%d", n, currency, value))
		}
	}
	return strings.Join(parts, " ")
}
