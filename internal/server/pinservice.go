// internal/server/pinservice.go

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"atm/internal/bank"
	"atm/internal/pin"
)

// PINService 為銀行端的 PIN 驗證服務：
//
//	POST /api/pin  {"pin":"1234"}
//	  200 {"currentBalance": N}
//	  403 未知 PIN
//	  400 body 或 PIN 格式錯誤
type PINService struct {
	Bank   *bank.Bank
	logger *zap.Logger
}

// NewPINService 建立 PIN 服務。logger 可為 nil。
func NewPINService(b *bank.Bank, logger *zap.Logger) *PINService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PINService{Bank: b, logger: logger}
}

type balanceResponse struct {
	CurrentBalance int `json:"currentBalance"`
}

func (p *PINService) validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<12)).Decode(&req); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	if err := pin.CheckFormat(req.PIN); err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}

	a, err := p.Bank.Authenticate(req.PIN)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, bank.ErrNotFound) {
			code = http.StatusForbidden
		}
		// PIN 不進 log
		p.logger.Info("pin rejected", zap.Int("status", code))
		writeErr(w, err, code)
		return
	}
	p.logger.Info("pin accepted", zap.String("account_id", a.ID))
	writeJSON(w, http.StatusOK, balanceResponse{CurrentBalance: a.Balance})
}

// accounts 處理 GET /api/accounts：列出帳戶（不含 PIN）。
func (p *PINService) accounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, p.Bank.List())
}
