// internal/cashbox/note.go

package cashbox

// 鈔匣支援的三種面額。
const (
	Twenty = 20
	Ten    = 10
	Five   = 5
)

// NoteBundle 是同一面額的一疊鈔票。
type NoteBundle struct {
	Value    int `json:"value"`
	Quantity int `json:"quantity"`
}

// Total 回傳這疊鈔票的總金額。
func (b NoteBundle) Total() int {
	return b.Value * b.Quantity
}

// Inventory 為鈔匣存量的值拷貝，供顯示與 API 使用。
type Inventory struct {
	Twenties int `json:"twenties"`
	Tens     int `json:"tens"`
	Fives    int `json:"fives"`
}

// Total 回傳存量總金額。
func (i Inventory) Total() int {
	return i.Twenties*Twenty + i.Tens*Ten + i.Fives*Five
}
