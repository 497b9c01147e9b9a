// internal/cashbox/cashbox.go

// Package cashbox 實作提款機鈔匣與出鈔演算法。
// 鈔匣只放 20/10/5 三種面額，出鈔採「逐輪貪婪」：每一輪依 20 → 10 → 5 各嘗試出一張，
// 另以 shouldDispenseTen / shouldDispenseFive 兩條規則避開死路
// （剩餘金額在現有鈔票下再也湊不出來的狀態）。
// 兩條規則只適用於 4:2:1 的三種面額，不是通用解法。
//
// CashBox 本身不加鎖：呼叫端（session.Machine）負責序列化所有出鈔請求。
package cashbox

import (
	"fmt"
	"slices"
	"strconv"
)

// MaxOverdraft 為提款後餘額可低於零的上限。
const MaxOverdraft = 100

// CashBox 持有三疊鈔票。張數只會被 Dispense 修改，程式執行期間不會補鈔。
type CashBox struct {
	twenties NoteBundle
	tens     NoteBundle
	fives    NoteBundle
}

// New 以各面額的初始張數建立鈔匣；任何負數張數回傳 ErrNegativeQuantity。
func New(twenties, tens, fives int) (*CashBox, error) {
	if twenties < 0 || tens < 0 || fives < 0 {
		return nil, fmt.Errorf("%w: twenties=%d tens=%d fives=%d", ErrNegativeQuantity, twenties, tens, fives)
	}
	return &CashBox{
		twenties: NoteBundle{Value: Twenty, Quantity: twenties},
		tens:     NoteBundle{Value: Ten, Quantity: tens},
		fives:    NoteBundle{Value: Five, Quantity: fives},
	}, nil
}

// Total 回傳鈔匣內的總金額。
func (c *CashBox) Total() int {
	return c.twenties.Total() + c.tens.Total() + c.fives.Total()
}

// Inventory 回傳目前存量的值拷貝。
func (c *CashBox) Inventory() Inventory {
	return Inventory{
		Twenties: c.twenties.Quantity,
		Tens:     c.tens.Quantity,
		Fives:    c.fives.Quantity,
	}
}

// Bundles 依面額由大到小回傳三疊鈔票的拷貝。
func (c *CashBox) Bundles() []NoteBundle {
	return []NoteBundle{c.twenties, c.tens, c.fives}
}

// ParseAmount 把鍵盤輸入的金額字串轉成整數；無法解析回傳 ErrInvalidInput。
// 空字串視為 0（尚未輸入）。
func ParseAmount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInput, s)
	}
	return n, nil
}

// CanDispense 檢查提款請求是否可行，依序：
//  1. 金額須為 10 的正整數倍
//  2. 金額不得超過餘額 + MaxOverdraft
//  3. 金額不得超過鈔匣總額
//  4. 金額除以 20 餘 10 時，10 元與 5 元合計至少要有 10 元
//
// 回傳 nil 代表可以出鈔。
func (c *CashBox) CanDispense(requested, balance int) error {
	if requested%Ten != 0 || requested <= 0 {
		return ErrInvalidAmount
	}
	// requested 已確定為正，這裡相減不會溢位
	if requested-MaxOverdraft > balance {
		return ErrInsufficientFunds
	}
	if requested > c.Total() {
		return ErrInsufficientInventory
	}
	// 例：要 70 但只剩 4 張 20
	if requested%Twenty == Ten && c.tens.Total()+c.fives.Total() < Ten {
		return ErrInsufficientInventory
	}
	return nil
}

// shouldDispenseTen 在只剩最後一張 10 元、5 元又湊不滿 10 元時，
// 只有出完這張後剩餘金額仍是 20 的倍數才允許出它。
func (c *CashBox) shouldDispenseTen(outstanding int) bool {
	if c.tens.Quantity == 1 &&
		c.fives.Total() < Ten &&
		outstanding%Twenty != c.tens.Value {
		return false
	}
	return true
}

// shouldDispenseFive 決定這一輪是否出 5 元：
//   - 10 元快用完但還有 20 元、且剩餘 >= 20 時先暫停出 5 元，讓 20 元先走
//   - 只剩最後一張 5 元時，出了會讓剩餘金額不是 10 的倍數就不出
func (c *CashBox) shouldDispenseFive(outstanding int) bool {
	if c.tens.Quantity <= 1 &&
		c.twenties.Quantity > 0 &&
		outstanding >= c.twenties.Value {
		return false
	}
	if c.fives.Quantity == 1 && outstanding%Ten != c.fives.Value {
		return false
	}
	return true
}

// Dispense 先重跑 CanDispense，再逐輪配鈔，回傳由大到小排序的鈔票面額。
// 鈔匣張數直接就地扣減。可行性檢查失敗時鈔匣完全不變；
// 迴圈中途卡住（ErrDispenseStalled）時已扣的張數不回滾。
func (c *CashBox) Dispense(requested, balance int) ([]int, error) {
	if err := c.CanDispense(requested, balance); err != nil {
		return nil, err
	}

	counted := 0
	notes := make([]int, 0, requested/Five)

	// 若還有鈔票且面額不超過剩餘金額，就從該疊出一張
	take := func(b *NoteBundle) {
		if b.Quantity > 0 && requested-counted >= b.Value {
			counted += b.Value
			b.Quantity--
			notes = append(notes, b.Value)
		}
	}

	for counted != requested {
		before := len(notes)

		take(&c.twenties)
		if c.shouldDispenseTen(requested - counted) {
			take(&c.tens)
		}
		if c.shouldDispenseFive(requested - counted) {
			take(&c.fives)
		}

		if len(notes) == before {
			return nil, fmt.Errorf("%w (%w: %d of %d counted)",
				ErrInsufficientInventory, ErrDispenseStalled, counted, requested)
		}
	}

	slices.Sort(notes)
	slices.Reverse(notes)
	return notes, nil
}
