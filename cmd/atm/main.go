// cmd/atm/main.go

// atm 為提款機模擬器的命令列入口：
//   - atm serve       提款機 HTTP API（鍵盤、螢幕、鈔匣存量）
//   - atm pinservice  銀行端 stub PIN 服務
//   - atm console     終端機互動操作
//   - atm version
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
