package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/code-payments/iap-verifier/iap"
	"github.com/code-payments/iap-verifier/iap/metrics"
	"github.com/code-payments/iap-verifier/providers"
)

const (
	exitVerification = 1
	exitUsage        = 2
)

type output struct {
	Provider         iap.Provider                  `json:"provider"`
	SubscriptionInfo *iap.VerifiedSubscriptionInfo `json:"subscription_info"`
	ReceiptID        string                        `json:"receipt_id"`
	ProviderResponse json.RawMessage               `json:"provider_response"`
}

func main() {
	provider := flag.String("provider", "", "receipt provider, apple or google")
	receipt := flag.String("receipt", "", "receipt to verify")
	receiptFile := flag.String("receipt-file", "", "file containing the receipt to verify")
	cacheTTL := flag.Duration("cache-ttl", 0, "cache successful provider responses for this long")
	timeout := flag.Duration("timeout", 30*time.Second, "verification timeout")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := zap.Must(zap.NewProduction())
	if *debug {
		log = zap.Must(zap.NewDevelopment())
	}
	defer func() {
		_ = log.Sync()
	}()

	os.Exit(run(log, *provider, *receipt, *receiptFile, *cacheTTL, *timeout))
}

func run(log *zap.Logger, provider, receipt, receiptFile string, cacheTTL, timeout time.Duration) int {
	if receiptFile != "" {
		data, err := os.ReadFile(receiptFile)
		if err != nil {
			log.Error("Failed to read receipt file", zap.Error(err), zap.String("path", receiptFile))
			return exitUsage
		}
		receipt = strings.TrimSpace(string(data))
	}
	if provider == "" || receipt == "" {
		fmt.Fprintln(os.Stderr, "usage: iap-verify -provider apple|google [-receipt <value> | -receipt-file <path>]")
		return exitUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := providers.LoadConfig()
	if err != nil {
		log.Error("Failed to load configuration", zap.Error(err))
		return exitUsage
	}

	var opts []providers.Option
	if cacheTTL > 0 {
		opts = append(opts, providers.WithResponseCache(cacheTTL))
	}

	registry, err := providers.Configure(ctx, log, cfg, opts...)
	if err != nil {
		log.Error("Failed to configure providers", zap.Error(err))
		return exitUsage
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Warn("Failed to close providers", zap.Error(err))
		}
	}()

	controller := iap.NewController(log, registry, iap.WithMetrics(metrics.New(prometheus.NewRegistry())))

	processed, err := controller.VerifyReceipt(ctx, provider, receipt)
	switch {
	case errors.Is(err, iap.ErrUndefinedProvider):
		log.Error("Provider is not configured", zap.String("provider", provider))
		return exitUsage
	case err != nil:
		log.Error("Failed to verify receipt", zap.Error(err))
		return exitVerification
	}

	receiptID, err := processed.ReceiptID()
	if err != nil {
		log.Error("Failed to decode receipt", zap.Error(err))
		return exitVerification
	}

	encoded, err := json.MarshalIndent(&output{
		Provider:         processed.Provider,
		SubscriptionInfo: processed.SubscriptionInfo,
		ReceiptID:        receiptID,
		ProviderResponse: processed.ProviderResponse,
	}, "", "  ")
	if err != nil {
		log.Error("Failed to encode result", zap.Error(err))
		return exitVerification
	}

	fmt.Println(string(encoded))
	return 0
}
