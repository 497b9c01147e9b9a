// internal/cashbox/errors.go
//
// 本檔集中定義鈔匣的領域錯誤（domain errors）。
// 前四個錯誤的訊息即為顯示給使用者的文字，session 會直接把 err.Error() 放進畫面。
// 呼叫端一律以 errors.Is 比對，不要比對字串。

package cashbox

import "errors"

var (
	// ErrInvalidInput 代表金額或餘額不是可表示的整數（例如輸入字串無法解析）。
	ErrInvalidInput = errors.New("Input is invalid")

	// ErrInvalidAmount 代表提款金額不是 10 的正整數倍。
	ErrInvalidAmount = errors.New("Amount requested is invalid")

	// ErrInsufficientFunds 代表提款金額超過餘額加透支額度。
	ErrInsufficientFunds = errors.New("Insufficient account funds to fulfil request")

	// ErrInsufficientInventory 代表鈔匣總額不足，或面額組合無法湊出該金額。
	ErrInsufficientInventory = errors.New("This ATM is currently unable to fulfil your request")

	// ErrDispenseStalled 代表出鈔迴圈某一輪一張都配不出來。
	// 可行性檢查通過後理應不會發生，屬於內部不變量被破壞，不可重試。
	ErrDispenseStalled = errors.New("dispense stalled")

	// ErrNegativeQuantity 代表建立鈔匣時給了負數張數。
	ErrNegativeQuantity = errors.New("note quantity must be >= 0")
)
