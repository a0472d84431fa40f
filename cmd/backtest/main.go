// Package main is the entry point for the momentumbt backtest CLI. It
// wires configuration, a local CSV price panel, a momentum strategy,
// the simulation engine, and the report writers together into a single
// one-shot run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"momentumbt/internal/config"
	"momentumbt/internal/engine"
	"momentumbt/internal/optimizer"
	"momentumbt/internal/panel"
	"momentumbt/internal/report"
	"momentumbt/internal/strategy"
	"momentumbt/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	panelDir := getEnv("PANEL_DIR", "./data")
	outputDir := getEnv("OUTPUT_DIR", "./output")

	series, err := panel.LoadPanelDir(panelDir, nil)
	if err != nil {
		log.Fatal().Err(err).Str("panel_dir", panelDir).Msg("failed to load price panel")
	}

	strategyCfg := cfg.StrategyConfig()
	if err := strategyCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid strategy configuration")
	}

	var strat strategy.Strategy
	switch cfg.StrategyVariant {
	case "dual":
		strat = strategy.NewDual(strategyCfg)
	default:
		strat = strategy.NewAbsolute(strategyCfg)
	}

	alignOpts := panel.AlignOptions{RequiredHistory: strat.RequiredHistory()}
	if s := os.Getenv("START_DATE"); s != "" {
		ts, err := time.Parse("2006-01-02", s)
		if err != nil {
			log.Fatal().Err(err).Str("start_date", s).Msg("invalid START_DATE")
		}
		alignOpts.Start = &ts
	}
	if s := os.Getenv("END_DATE"); s != "" {
		ts, err := time.Parse("2006-01-02", s)
		if err != nil {
			log.Fatal().Err(err).Str("end_date", s).Msg("invalid END_DATE")
		}
		alignOpts.End = &ts
	}

	aligned, err := panel.Align(series, alignOpts)
	if err != nil {
		log.Fatal().Err(err).Msg("panel alignment failed")
	}

	riskCfg := cfg.RiskConfig()
	if err := riskCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid risk configuration")
	}

	econfig := engine.Config{
		Strategy:             strat,
		MomentumMethod:       cfg.MomentumMethod,
		Lookback:             cfg.LookbackPeriod,
		FastPeriod:           cfg.FastPeriod,
		SlowPeriod:           cfg.SlowPeriod,
		SafeAsset:            cfg.SafeAsset,
		ExecutionDelay:       cfg.ExecutionDelay,
		Commission:           cfg.Commission,
		Slippage:             cfg.Slippage,
		RiskConfig:           riskCfg,
		OptimizerMethod:      cfg.OptimizerMethod,
		OptimizerConstraints: optimizer.Constraints{MinWeight: cfg.MinWeight, MaxWeight: cfg.MaxWeight},
		RiskFreeAnnual:       cfg.RiskFreeRateAnnual,
		InitialCapital:       cfg.InitialCapital,
		Logger:               log,
	}

	runID := uuid.NewString()
	start := time.Now()
	result, err := engine.Run(ctx, econfig, aligned, runID)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest run failed")
	}
	log.Info().
		Str("run_id", runID).
		Dur("elapsed", time.Since(start)).
		Int("trades", len(result.Trades)).
		Float64("final_capital", result.FinalCapital).
		Msg("backtest complete")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create output directory")
	}
	if err := writeReports(outputDir, result); err != nil {
		log.Fatal().Err(err).Msg("failed to write reports")
	}
	fmt.Print(report.Summary(result))
}

func writeReports(dir string, result *engine.BacktestResult) error {
	equityF, err := os.Create(filepath.Join(dir, "equity.csv"))
	if err != nil {
		return err
	}
	defer equityF.Close()
	if err := report.WriteEquityCSV(equityF, result.EquityCurve); err != nil {
		return err
	}

	tradesF, err := os.Create(filepath.Join(dir, "trades.csv"))
	if err != nil {
		return err
	}
	defer tradesF.Close()
	if err := report.WriteTradesCSV(tradesF, result.Trades); err != nil {
		return err
	}

	signalsF, err := os.Create(filepath.Join(dir, "signals.csv"))
	if err != nil {
		return err
	}
	defer signalsF.Close()
	if err := report.WriteSignalsCSV(signalsF, result); err != nil {
		return err
	}

	data, err := report.Encode(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "result.msgpack"), data, 0o644); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "summary.txt"), []byte(report.Summary(result)), 0o644)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
