// internal/config/config.go

// Package config 讀取 YAML 設定檔（gopkg.in/yaml.v3）。
//
// Load 先建立預設值，再讓 YAML 覆寫檔案中出現的欄位，
// 因此檔案只需要寫與預設不同的部分；最後統一驗證。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"atm/internal/display"
	"atm/internal/logging"
	"atm/internal/pin"
)

// ErrInvalid 代表設定值不合法。
var ErrInvalid = errors.New("invalid configuration")

// Config 為整個程式的設定。
type Config struct {
	Listen     Listen         `yaml:"listen"`
	Log        logging.Config `yaml:"log"`
	Cash       Cash           `yaml:"cash"`
	PINService PINService     `yaml:"pin_service"`
	Bank       Bank           `yaml:"bank"`
	Display    Display        `yaml:"display"`
}

// Listen 為兩個 HTTP 服務的監聽位址。
type Listen struct {
	ATM        string `yaml:"atm"`
	PINService string `yaml:"pin_service"`
}

// Cash 為鈔匣初始張數。
type Cash struct {
	Twenties int `yaml:"twenties"`
	Tens     int `yaml:"tens"`
	Fives    int `yaml:"fives"`
}

// PINService 為遠端 PIN 服務。URL 空白時 serve 直接使用程序內的 Bank。
type PINService struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker Breaker       `yaml:"breaker"`
}

// Breaker 為斷路器參數。
type Breaker struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
	MaxRequests         uint32        `yaml:"max_requests"`
}

// Settings 轉成 pin 套件的斷路器參數。
func (b Breaker) Settings() pin.BreakerSettings {
	return pin.BreakerSettings{
		ConsecutiveFailures: b.ConsecutiveFailures,
		Timeout:             b.OpenTimeout,
		MaxRequests:         b.MaxRequests,
	}
}

// Bank 為 stub PIN 服務的帳戶清單。
type Bank struct {
	Accounts []Account `yaml:"accounts"`
}

// Account 為一個 stub 帳戶。
type Account struct {
	PIN     string `yaml:"pin"`
	Name    string `yaml:"name"`
	Balance int    `yaml:"balance"`
}

// Display 為畫面設定。
type Display struct {
	Currency string `yaml:"currency"`
}

// Default 回傳預設設定。
func Default() Config {
	breaker := pin.DefaultBreakerSettings()
	return Config{
		Listen: Listen{ATM: ":8080", PINService: ":8081"},
		Log:    logging.Config{Environment: logging.EnvironmentProduction},
		Cash:   Cash{Twenties: 7, Tens: 15, Fives: 4},
		PINService: PINService{
			URL:     "http://127.0.0.1:8081/api/pin",
			Timeout: 10 * time.Second,
			Breaker: Breaker{
				ConsecutiveFailures: breaker.ConsecutiveFailures,
				OpenTimeout:         breaker.Timeout,
				MaxRequests:         breaker.MaxRequests,
			},
		},
		Bank: Bank{Accounts: []Account{
			{PIN: "1111", Name: "demo", Balance: 220},
		}},
		Display: Display{Currency: display.DefaultCurrency},
	}
}

// Load 讀取 path 的 YAML 設定；path 空白時回傳預設值。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 檢查設定值。
func (c Config) Validate() error {
	if c.Cash.Twenties < 0 || c.Cash.Tens < 0 || c.Cash.Fives < 0 {
		return fmt.Errorf("%w: cash note counts must be >= 0", ErrInvalid)
	}
	if c.PINService.URL != "" {
		u, err := url.Parse(c.PINService.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: pin_service.url %q", ErrInvalid, c.PINService.URL)
		}
	}
	if c.PINService.Timeout <= 0 {
		return fmt.Errorf("%w: pin_service.timeout must be > 0", ErrInvalid)
	}
	if c.PINService.Breaker.ConsecutiveFailures == 0 || c.PINService.Breaker.OpenTimeout <= 0 {
		return fmt.Errorf("%w: pin_service.breaker needs consecutive_failures and open_timeout", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Bank.Accounts))
	for _, a := range c.Bank.Accounts {
		if err := pin.CheckFormat(a.PIN); err != nil {
			return fmt.Errorf("%w: bank account %q: %w", ErrInvalid, a.Name, err)
		}
		if seen[a.PIN] {
			return fmt.Errorf("%w: duplicate pin for bank account %q", ErrInvalid, a.Name)
		}
		seen[a.PIN] = true
	}
	return nil
}
