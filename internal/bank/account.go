// Package bank 定義核心領域模型與業務規則。
// 本檔定義 Account 結構，不含任何 HTTP 細節。

package bank

// Account represents a bank account reachable by its card PIN.
// PIN 不輸出到 JSON。
type Account struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int    `json:"balance"`
	PIN     string `json:"-"`
}
