// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊，與 handler 分離。
// 所有端點掛在 /api/v1/ 下，同時保留根路徑方便本地開發。
package server

import "net/http"

// mount 把 v1 掛到 /api/v1/ 與 /。
func mount(v1 *http.ServeMux) http.Handler {
	root := http.NewServeMux()
	root.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))
	root.Handle("/", v1)
	return root
}

// Router 建立提款機的 HTTP 處理鏈：
//   - GET  /health
//   - GET  /display
//   - POST /keypad/{key}
//   - POST /session
//   - GET  /inventory
func (s *Server) Router() http.Handler {
	v1 := http.NewServeMux()
	v1.HandleFunc("/health", health)
	v1.HandleFunc("/display", s.display)
	v1.HandleFunc("/keypad/", s.keypad)
	v1.HandleFunc("/session", s.newSession)
	v1.HandleFunc("/inventory", s.inventory)

	return logRequests(s.logger, mount(v1))
}

// Router 建立 PIN 服務的 HTTP 處理鏈：
//   - GET  /health
//   - POST /api/pin
//   - GET  /api/accounts
//
// 因為 PIN 路徑本身帶 /api/，不再加版本前綴。
func (p *PINService) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", health)
	mux.HandleFunc("/api/pin", p.validate)
	mux.HandleFunc("/api/accounts", p.accounts)
	return logRequests(p.logger, mux)
}
