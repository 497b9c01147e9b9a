// cmd/atm/root.go

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"atm/internal/bank"
	"atm/internal/cashbox"
	"atm/internal/config"
	"atm/internal/logging"
	"atm/internal/pin"
	"atm/internal/session"
)

// app 為各子指令共用的執行環境，於 PersistentPreRunE 建立。
type app struct {
	cfgFile string
	verbose bool
	trace   bool

	cfg           config.Config
	logger        *zap.Logger
	shutdownTrace func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "atm",
		Short:         "ATM simulator: cash dispensing and PIN-authenticated withdrawals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}

	// 空白代表使用內建預設值
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "Write OpenTelemetry spans to stderr")

	root.AddCommand(
		newServeCmd(a),
		newPINServiceCmd(a),
		newConsoleCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	if a.verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	a.logger = logger

	a.shutdownTrace = func(context.Context) error { return nil }
	if a.trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(stderr), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		otel.SetTracerProvider(tp)
		a.shutdownTrace = tp.Shutdown
	}
	return nil
}

func (a *app) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	if a.shutdownTrace != nil {
		errs = append(errs, a.shutdownTrace(ctx))
	}
	if a.logger != nil {
		// stderr 的 Sync 在部分平台回傳 EINVAL，忽略
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// newBank 依設定建立 stub 帳戶。
func (a *app) newBank() (*bank.Bank, error) {
	b := bank.NewBank()
	for _, acct := range a.cfg.Bank.Accounts {
		if _, err := b.Create(acct.PIN, acct.Name, acct.Balance); err != nil {
			return nil, fmt.Errorf("bank account %q: %w", acct.Name, err)
		}
	}
	return b, nil
}

// newValidator 在設定了 pin_service.url 時走 HTTP，否則直接使用程序內的 Bank。
func (a *app) newValidator() (pin.Validator, error) {
	ps := a.cfg.PINService
	if ps.URL == "" {
		a.logger.Info("using in-process pin service", zap.Int("accounts", len(a.cfg.Bank.Accounts)))
		return a.newBank()
	}
	a.logger.Info("using remote pin service", zap.String("url", ps.URL))
	return pin.NewHTTPValidator(ps.URL,
		pin.WithLogger(a.logger),
		pin.WithBreaker(ps.Breaker.Settings()),
		pin.WithHTTPClient(&http.Client{Timeout: ps.Timeout}),
	), nil
}

// newMachine 建立鈔匣與狀態機。
func (a *app) newMachine() (*session.Machine, error) {
	c := a.cfg.Cash
	box, err := cashbox.New(c.Twenties, c.Tens, c.Fives)
	if err != nil {
		return nil, err
	}
	v, err := a.newValidator()
	if err != nil {
		return nil, err
	}
	m := session.NewMachine(box, v,
		session.WithLogger(a.logger),
		session.WithValidationTimeout(a.cfg.PINService.Timeout),
	)
	a.logger.Info("cash box loaded",
		zap.Any("inventory", box.Inventory()),
		zap.Int("total", box.Total()),
		zap.String("session_id", m.ID().String()))
	return m, nil
}
