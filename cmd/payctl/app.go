package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/boddenberg/plan-assistant-go/internal/catalog"
	"github.com/boddenberg/plan-assistant-go/internal/config"
	"github.com/boddenberg/plan-assistant-go/internal/domain"
	"github.com/boddenberg/plan-assistant-go/internal/infra/gateway"
	"github.com/boddenberg/plan-assistant-go/internal/infra/ledger"
	"github.com/boddenberg/plan-assistant-go/internal/infra/observability"
	"github.com/boddenberg/plan-assistant-go/internal/service"

	"github.com/spf13/cobra"
)

// globalOptions são as flags persistentes do payctl.
type globalOptions struct {
	dbPath   string
	logLevel string
	jsonOut  bool
}

func (o *globalOptions) bind(cmd *cobra.Command) {
	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	cmd.PersistentFlags().StringVar(&o.dbPath, "db", cfg.SQLiteDSN, "Arquivo SQLite do ledger")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "warn", "Nível de log (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&o.jsonOut, "json", "j", false, "Saída em JSON")
}

// app é o PaymentService montado sobre o ledger SQLite.
type app struct {
	payments *service.PaymentService
	close    func() error
}

func (o *globalOptions) open() (*app, error) {
	cfg := config.Load()

	l, err := ledger.NewSQLite(o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("abrir ledger %s: %w", o.dbPath, err)
	}

	logger := observability.NewLogger(o.logLevel, "payctl")
	gw := gateway.New(cfg.PaymentGateway, l, gateway.Options{
		Secret:        cfg.PaymentAPISecret,
		SimulateError: cfg.PaymentSimulateError,
		Coin:          gateway.NewRandomCoin(time.Now().UnixNano(), cfg.StatusApprovalRate),
		Logger:        logger,
	})

	// sem notificador: o CLI só imprime o resultado
	payments := service.NewPaymentService(catalog.New(), gw, l, nil,
		cfg.PaymentFallbackEmail, observability.NewMetrics(), logger)

	return &app{
		payments: payments,
		close: func() error {
			logger.Sync()
			return l.Close()
		},
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *domain.PaymentResult) {
	fmt.Fprintln(w, res.Message)
	fmt.Fprintf(w, "  Transação: %s\n", res.TransactionID)
	fmt.Fprintf(w, "  Status:    %s\n", res.Status.Label())
	if tx := res.Transaction; tx != nil {
		fmt.Fprintf(w, "  Plano:     %s\n", domain.TitleCode(tx.PlanID))
		fmt.Fprintf(w, "  Valor:     R$%.2f\n", tx.Amount)
		fmt.Fprintf(w, "  Método:    %s\n", tx.PaymentMethod.Label())
		if tx.RefundedAmount > 0 {
			fmt.Fprintf(w, "  Estornado: R$%.2f\n", tx.RefundedAmount)
		}
	}
	if res.Barcode != "" {
		fmt.Fprintf(w, "  Boleto:    %s\n  URL:       %s\n", res.Barcode, res.PaymentURL)
	}
	if res.PixCode != "" {
		fmt.Fprintf(w, "  PIX:       %s\n", res.PixCode)
	}
}
