// drift_monitor 对比订单与支付记录的状态，输出不一致的条目
//
// 用法:
//
//	go run ./cmd/drift_monitor -since 24h -verify -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"storefront_payments/internal/domain/payment/model"
	"storefront_payments/internal/domain/payment/repository"
	"storefront_payments/internal/domain/payment/service"
	"storefront_payments/internal/domain/payment/strategy"
	"storefront_payments/internal/pkg/config"
	"storefront_payments/internal/pkg/xendit"
	"storefront_payments/pkg/database"
	"storefront_payments/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	since := flag.String("since", cfg.Monitor.Lookback.String(), "lookback duration (24h) or start time (RFC3339 / 2006-01-02)")
	verify := flag.Bool("verify", false, "look every discrepancy up at the payment gateway")
	workers := flag.Int("workers", cfg.Monitor.VerifyWorkers, "concurrent gateway lookups when -verify is set")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	failOnDrift := flag.Bool("fail-on-drift", false, "exit with status 1 when drift is found")
	flag.Parse()

	// 报告走 stdout，日志走 stderr
	log, err := logger.Init(cfg.Log.Level, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer logger.Sync()

	cutoff, err := service.ParseSince(*since, time.Now())
	if err != nil {
		log.Error("invalid -since", zap.Error(err))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlxDB, err := database.InitSQLX(ctx, cfg.Database)
	if err != nil {
		log.Error("connect database", zap.Error(err))
		return 2
	}
	defer sqlxDB.Close()

	var lookup service.PaymentLookupService
	if *verify {
		db, err := database.InitDatabase(cfg.Database, false)
		if err != nil {
			log.Error("connect database", zap.Error(err))
			return 2
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		client := xendit.NewClient(cfg.Xendit.SecretKey, cfg.Xendit.BaseURL, cfg.Xendit.Timeout)
		if !client.Configured() {
			log.Warn("xendit secret key not configured, verification will record not-configured errors")
		}
		lookup = service.NewPaymentLookupService(
			repository.NewPaymentRepository(db),
			repository.NewOrderRepository(db),
			strategy.NewStrategies(client), log, nil,
		)
	}

	drift := service.NewDriftService(repository.NewDriftRepository(sqlxDB), lookup, log, nil)
	report, err := drift.Scan(ctx, service.ScanOptions{
		Since:   cutoff,
		Verify:  *verify,
		Workers: *workers,
		Retries: cfg.Monitor.VerifyRetries,
	})
	if err != nil {
		log.Error("drift scan failed", zap.Error(err))
		return 2
	}

	if *asJSON {
		err = writeJSON(os.Stdout, report)
	} else {
		err = writeTable(os.Stdout, report)
	}
	if err != nil {
		log.Error("write report", zap.Error(err))
		return 2
	}

	if *failOnDrift && report.HasDrift() {
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, report *model.DriftReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeTable(w io.Writer, report *model.DriftReport) error {
	fmt.Fprintf(w, "scanned %d orders and %d payments since %s\n",
		report.OrdersScanned, report.PaymentsScanned, report.Since.Format(time.RFC3339))
	for _, kind := range model.DriftKinds {
		fmt.Fprintf(w, "  %-28s %d\n", kind, report.Counts[kind])
	}
	if !report.HasDrift() {
		_, err := fmt.Fprintln(w, "no drift")
		return err
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "KIND\tEXTERNAL ID\tORDER\tPAYMENT"
	if report.Verified {
		header += "\tPROVIDER"
	}
	fmt.Fprintln(tw, header)
	for _, d := range report.Discrepancies {
		orderStatus, paymentStatus := "-", "-"
		if d.Order != nil {
			orderStatus = d.Order.Status
		}
		if d.Payment != nil {
			paymentStatus = d.Payment.Status
		}
		line := fmt.Sprintf("%s\t%s\t%s\t%s", d.Kind, d.ExternalID, orderStatus, paymentStatus)
		if report.Verified {
			line += "\t" + providerColumn(d)
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func providerColumn(d *model.Discrepancy) string {
	switch {
	case d.VerifyError != "":
		return "error: " + d.VerifyError
	case d.ProviderStatus != "":
		return d.ProviderStatus + " (" + d.ProviderSource + ")"
	default:
		return "-"
	}
}
