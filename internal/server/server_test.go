// internal/server/server_test.go
//
// server 層的整合測試：以 httptest 啟動 PIN 服務與提款機，
// 走完整的 HTTP 流程（輸入 PIN → 提款 → 查詢存量 → 開新 Session）。
package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atm/internal/bank"
	"atm/internal/cashbox"
	"atm/internal/display"
	"atm/internal/pin"
	"atm/internal/session"
)

// doJSON 送出 JSON 請求並驗證狀態碼；out 非 nil 時解析回應。
func doJSON(t *testing.T, c *http.Client, method, url string, body any, wantCode int, out any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantCode {
		t.Fatalf("%s %s code=%d want=%d", method, url, resp.StatusCode, wantCode)
	}
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
}

type viewResponse struct {
	SessionID string          `json:"sessionId"`
	State     string          `json:"state"`
	Screen    display.Screen  `json:"screen"`
	Session   session.Session `json:"session"`
}

// newATM 啟動 PIN 服務與提款機，兩者之間走真正的 HTTP。
func newATM(t *testing.T) (*httptest.Server, *session.Machine) {
	t.Helper()
	b := bank.NewBank()
	_, err := b.Create("1234", "Alice", 220)
	require.NoError(t, err)
	pinSrv := httptest.NewServer(NewPINService(b, nil).Router())
	t.Cleanup(pinSrv.Close)

	box, err := cashbox.New(7, 15, 4)
	require.NoError(t, err)
	m := session.NewMachine(box, pin.NewHTTPValidator(pinSrv.URL+"/api/pin"))
	atm := httptest.NewServer(NewServer(m, display.New(""), nil).Router())
	t.Cleanup(atm.Close)
	return atm, m
}

func press(t *testing.T, c *http.Client, base, keys string) {
	t.Helper()
	for _, k := range keys {
		doJSON(t, c, "POST", base+"/keypad/"+string(k), nil, 200, nil)
	}
}

func TestHTTPWithdrawFlow(t *testing.T) {
	ts, m := newATM(t)
	cli := ts.Client()

	var v viewResponse
	doJSON(t, cli, "GET", ts.URL+"/display", nil, 200, &v)
	assert.Equal(t, "entering_pin", v.State)
	assert.Equal(t, "Welcome", v.Screen.Heading)

	press(t, cli, ts.URL, "1234")
	m.Wait()

	doJSON(t, cli, "GET", ts.URL+"/api/v1/display", nil, 200, &v)
	assert.Equal(t, "entering_amount", v.State)
	assert.Equal(t, "Current Balance: £220", v.Screen.Info)

	press(t, cli, ts.URL, "140")
	doJSON(t, cli, "POST", ts.URL+"/keypad/enter", nil, 200, &v)
	assert.Equal(t, "awaiting_dispense_retry", v.State)
	assert.Equal(t, "Dispensing £140: 4x£20 4x£10 4x£5", v.Screen.Action)
	assert.Equal(t, 80, v.Session.Balance)

	var inv struct {
		Notes cashbox.Inventory `json:"notes"`
		Total int               `json:"total"`
	}
	doJSON(t, cli, "GET", ts.URL+"/inventory", nil, 200, &inv)
	assert.Equal(t, cashbox.Inventory{Twenties: 3, Tens: 11, Fives: 0}, inv.Notes)
	assert.Equal(t, 170, inv.Total)

	doJSON(t, cli, "POST", ts.URL+"/keypad/cancel", nil, 200, &v)
	assert.Equal(t, "Thank You", v.Screen.Heading)
}

func TestHTTPWrongPIN(t *testing.T) {
	ts, m := newATM(t)
	cli := ts.Client()

	press(t, cli, ts.URL, "9999")
	m.Wait()

	var v viewResponse
	doJSON(t, cli, "GET", ts.URL+"/display", nil, 200, &v)
	assert.Equal(t, "PIN is incorrect", v.Screen.Heading)
	assert.Equal(t, "Try again", v.Screen.Info)
	assert.Equal(t, 1, v.Session.PINAttempts)
}

func TestHTTPNewSession(t *testing.T) {
	ts, m := newATM(t)
	cli := ts.Client()

	press(t, cli, ts.URL, "1234")
	m.Wait()

	var before, after viewResponse
	doJSON(t, cli, "GET", ts.URL+"/display", nil, 200, &before)
	doJSON(t, cli, "POST", ts.URL+"/session", nil, 201, &after)
	assert.NotEqual(t, before.SessionID, after.SessionID)
	assert.Equal(t, "entering_pin", after.State)
	assert.False(t, after.Session.Authenticated)
}

func TestHTTPErrors(t *testing.T) {
	ts, _ := newATM(t)
	cli := ts.Client()

	doJSON(t, cli, "POST", ts.URL+"/keypad/banana", nil, 400, nil)
	doJSON(t, cli, "POST", ts.URL+"/keypad/", nil, 400, nil)
	doJSON(t, cli, "GET", ts.URL+"/keypad/1", nil, 405, nil)
	doJSON(t, cli, "POST", ts.URL+"/display", nil, 405, nil)
	doJSON(t, cli, "GET", ts.URL+"/session", nil, 405, nil)
	doJSON(t, cli, "POST", ts.URL+"/inventory", nil, 405, nil)

	var h map[string]string
	doJSON(t, cli, "GET", ts.URL+"/health", nil, 200, &h)
	assert.Equal(t, "ok", h["status"])
}

func TestPINService(t *testing.T) {
	b := bank.NewBank()
	_, _ = b.Create("1234", "Alice", 220)
	_, _ = b.Create("5555", "Bob", -35)
	ts := httptest.NewServer(NewPINService(b, nil).Router())
	defer ts.Close()
	cli := ts.Client()

	var out balanceResponse
	doJSON(t, cli, "POST", ts.URL+"/api/pin", map[string]string{"pin": "1234"}, 200, &out)
	assert.Equal(t, 220, out.CurrentBalance)
	doJSON(t, cli, "POST", ts.URL+"/api/pin", map[string]string{"pin": "5555"}, 200, &out)
	assert.Equal(t, -35, out.CurrentBalance)

	doJSON(t, cli, "POST", ts.URL+"/api/pin", map[string]string{"pin": "0000"}, 403, nil)
	doJSON(t, cli, "POST", ts.URL+"/api/pin", map[string]string{"pin": "12"}, 400, nil)
	doJSON(t, cli, "GET", ts.URL+"/api/pin", nil, 405, nil)

	// 壞 JSON
	req, _ := http.NewRequest("POST", ts.URL+"/api/pin", bytes.NewBufferString("{"))
	resp, err := cli.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)

	var accts []bank.Account
	doJSON(t, cli, "GET", ts.URL+"/api/accounts", nil, 200, &accts)
	require.Len(t, accts, 2)
	assert.Empty(t, accts[0].PIN)
}
