// internal/bank/bank.go

// Package bank 為 PIN 服務背後的帳戶登錄表：以 PIN 找帳戶、回報餘額。
// 採用單一互斥鎖 (sync.Mutex) 保障所有狀態變更序列化。
// 金額以 int 的整數貨幣單位儲存；餘額可為負（已透支的帳戶）。
package bank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"atm/internal/pin"
)

// Bank 管理全系統帳戶。
// - mu：序列化所有讀寫。
// - nextID：以原子遞增產生帳戶 ID。
// - byPIN：PIN → *Account。
type Bank struct {
	mu     sync.Mutex
	nextID int64
	byPIN  map[string]*Account
}

// NewBank 建立空白銀行實例。
func NewBank() *Bank {
	return &Bank{byPIN: make(map[string]*Account)}
}

func (b *Bank) newID() string {
	id := atomic.AddInt64(&b.nextID, 1)
	return fmt.Sprintf("%d", id)
}

// Create 以 PIN、名稱與初始餘額建立帳戶。
// PIN 格式錯誤回傳 ErrBadPIN；PIN 重複回傳 ErrDuplicatePIN。
// 回傳值拷貝，避免呼叫端改寫內部狀態。
func (b *Bank) Create(p, name string, balance int) (Account, error) {
	if err := pin.CheckFormat(p); err != nil {
		return Account{}, ErrBadPIN
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.byPIN[p]; dup {
		return Account{}, ErrDuplicatePIN
	}
	a := &Account{ID: b.newID(), Name: name, Balance: balance, PIN: p}
	b.byPIN[p] = a
	return *a, nil
}

// Authenticate 依 PIN 取得帳戶快照；找不到回傳 ErrNotFound。
func (b *Bank) Authenticate(p string) (Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.byPIN[p]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *a, nil
}

// List 回傳所有帳戶的快照，依 ID 排序。
func (b *Bank) List() []Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Account, 0, len(b.byPIN))
	for _, a := range b.byPIN {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate 讓 Bank 直接滿足 pin.Validator（不經 HTTP 的程序內 PIN 服務）。
// 錯誤轉成 pin 套件的封閉集合。
func (b *Bank) Validate(ctx context.Context, p string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", pin.ErrServiceUnavailable, err)
	}
	if err := pin.CheckFormat(p); err != nil {
		return 0, err
	}
	a, err := b.Authenticate(p)
	if errors.Is(err, ErrNotFound) {
		return 0, pin.ErrCredentialsRejected
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pin.ErrServiceUnavailable, err)
	}
	return a.Balance, nil
}
