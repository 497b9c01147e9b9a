// internal/server/handler.go
//
// Package server
// ─────────────────────────────────────────────
// 提供兩組 HTTP 介面：
//   - Server：提款機本身（鍵盤、螢幕、鈔匣存量、開新 Session）。
//   - PINService：銀行端的 PIN 驗證服務（pinservice.go）。
//
// handler 只負責解析請求、呼叫下層、輸出 JSON；狀態規則都在 session 與 bank。
package server

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"atm/internal/display"
	"atm/internal/session"
)

// Server 為提款機 HTTP 層：
// - Machine：交易狀態機。
// - Renderer：把 Session 轉成畫面文字。
type Server struct {
	Machine  *session.Machine
	Renderer display.Renderer
	logger   *zap.Logger
}

// NewServer 建立提款機 HTTP 伺服器。logger 可為 nil。
func NewServer(m *session.Machine, r display.Renderer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Machine: m, Renderer: r, logger: logger}
}

// View 為 GET /display 與鍵盤操作的回應。
type View struct {
	SessionID string          `json:"sessionId"`
	State     session.State   `json:"state"`
	Screen    display.Screen  `json:"screen"`
	Session   session.Session `json:"session"`
}

func (s *Server) view() View {
	// ID 與 Snapshot 分開取，中間若剛好開新 Session 也只會在下一次請求反映
	snap := s.Machine.Snapshot()
	return View{
		SessionID: s.Machine.ID().String(),
		State:     snap.State(),
		Screen:    s.Renderer.Render(snap),
		Session:   snap,
	}
}

// display 處理 GET /display：目前畫面與 Session 快照。
func (s *Server) display(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.view())
}

// keypad 處理 POST /keypad/{key}，key 為 0–9、clear、cancel、enter。
// PIN 驗證在背景進行，回應當下的畫面可能仍是 validating_pin。
func (s *Server) keypad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/keypad/"), "/")
	ev, err := session.ParseKey(key)
	if err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	s.Machine.Dispatch(r.Context(), ev)
	writeJSON(w, http.StatusOK, s.view())
}

// newSession 處理 POST /session：丟棄目前 Session，開始新的一個。
func (s *Server) newSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Machine.NewSession()
	writeJSON(w, http.StatusCreated, s.view())
}

// inventory 處理 GET /inventory：鈔匣存量與總額。
func (s *Server) inventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	inv := s.Machine.Inventory()
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": inv,
		"total": inv.Total(),
	})
}

// health 提供健康檢查端點：GET /health。
func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
