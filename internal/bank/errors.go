// internal/bank/errors.go
//
// 本檔集中定義「領域錯誤（domain errors）」。
// 這些錯誤會由上層 HTTP handler 轉換成適當的 HTTP 狀態碼。

package bank

import "errors"

var (
	// ErrNotFound 代表沒有帳戶使用此 PIN。
	// 對應 HTTP 狀態碼 403 Forbidden。
	ErrNotFound = errors.New("account not found")

	// ErrBadPIN 代表 PIN 不是 4 位數字。
	// 對應 HTTP 狀態碼 400 Bad Request。
	ErrBadPIN = errors.New("pin must be 4 digits")

	// ErrDuplicatePIN 代表 PIN 已被其他帳戶使用。
	ErrDuplicatePIN = errors.New("pin already in use")
)
