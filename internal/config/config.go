// Package config loads the backtest configuration from environment
// variables, with a local .env file as a development convenience, and
// validates everything once at construction.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"momentumbt/internal/engine"
	"momentumbt/internal/optimizer"
	"momentumbt/internal/risk"
	"momentumbt/internal/strategy"
)

// BacktestConfig is the full set of recognized configuration keys:
// strategy parameters, engine frictions, optimizer bounds, and the
// risk-free rate.
type BacktestConfig struct {
	LookbackPeriod          int
	RebalanceFrequency      strategy.RebalanceFrequency
	PositionCount           int
	AbsoluteThreshold       float64
	SafeAsset               string
	StrengthMethod          strategy.StrengthMethod
	StrengthScaleRange      float64
	UseVolatilityAdjustment bool
	StrategyVariant         string // "absolute" | "dual"

	MomentumMethod engine.MomentumMethod
	FastPeriod     int
	SlowPeriod     int

	ExecutionDelay  int
	MaxPositionSize float64
	Commission      float64
	Slippage        float64
	MaxLeverage     float64

	OptimizerMethod optimizer.Method // empty disables the optimizer override
	MinWeight       float64
	MaxWeight       float64

	RiskFreeRateAnnual float64
	InitialCapital     float64

	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables, loading a local
// .env file first if present.
func Load() (*BacktestConfig, error) {
	_ = godotenv.Load()

	cfg := &BacktestConfig{
		LookbackPeriod:          getEnvAsInt("LOOKBACK_PERIOD", 252),
		RebalanceFrequency:      strategy.RebalanceFrequency(getEnv("REBALANCE_FREQUENCY", "monthly")),
		PositionCount:           getEnvAsInt("POSITION_COUNT", 3),
		AbsoluteThreshold:       getEnvAsFloat("ABSOLUTE_THRESHOLD", 0.0),
		SafeAsset:               getEnv("SAFE_ASSET", ""),
		StrengthMethod:          strategy.StrengthMethod(getEnv("STRENGTH_METHOD", "binary")),
		StrengthScaleRange:      getEnvAsFloat("STRENGTH_SCALE_RANGE", 0.2),
		UseVolatilityAdjustment: getEnvAsBool("USE_VOLATILITY_ADJUSTMENT", false),
		StrategyVariant:         getEnv("STRATEGY_VARIANT", "absolute"),

		MomentumMethod: engine.MomentumMethod(getEnv("MOMENTUM_METHOD", "absolute")),
		FastPeriod:     getEnvAsInt("MA_FAST_PERIOD", 20),
		SlowPeriod:     getEnvAsInt("MA_SLOW_PERIOD", 100),

		ExecutionDelay:  getEnvAsInt("EXECUTION_DELAY", 0),
		MaxPositionSize: getEnvAsFloat("MAX_POSITION_SIZE", 1.0),
		Commission:      getEnvAsFloat("COMMISSION", 0.001),
		Slippage:        getEnvAsFloat("SLIPPAGE", 0.0005),
		MaxLeverage:     getEnvAsFloat("MAX_LEVERAGE", 1.0),

		OptimizerMethod: optimizer.Method(getEnv("OPTIMIZER_METHOD", "")),
		MinWeight:       getEnvAsFloat("MIN_WEIGHT", 0.0),
		MaxWeight:       getEnvAsFloat("MAX_WEIGHT", 1.0),

		RiskFreeRateAnnual: getEnvAsFloat("RISK_FREE_RATE_ANNUAL", 0.0),
		InitialCapital:     getEnvAsFloat("INITIAL_CAPITAL", 100000),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and out-of-range numbers at
// construction time, surfacing a configuration error rather than a
// runtime panic deep in the bar loop.
func (c *BacktestConfig) Validate() error {
	if c.LookbackPeriod < 2 {
		return fmt.Errorf("config: LOOKBACK_PERIOD must be >= 2, got %d", c.LookbackPeriod)
	}
	if !c.RebalanceFrequency.Valid() {
		return fmt.Errorf("config: unknown REBALANCE_FREQUENCY %q", c.RebalanceFrequency)
	}
	if c.PositionCount < 1 {
		return fmt.Errorf("config: POSITION_COUNT must be >= 1, got %d", c.PositionCount)
	}
	if !c.StrengthMethod.Valid() {
		return fmt.Errorf("config: unknown STRENGTH_METHOD %q", c.StrengthMethod)
	}
	if c.StrategyVariant != "absolute" && c.StrategyVariant != "dual" {
		return fmt.Errorf("config: unknown STRATEGY_VARIANT %q", c.StrategyVariant)
	}
	if c.ExecutionDelay < 0 || c.ExecutionDelay > 5 {
		return fmt.Errorf("config: EXECUTION_DELAY must be in [0, 5], got %d", c.ExecutionDelay)
	}
	if c.MaxPositionSize <= 0 || c.MaxPositionSize > 1 {
		return fmt.Errorf("config: MAX_POSITION_SIZE must be in (0, 1], got %f", c.MaxPositionSize)
	}
	if c.Commission < 0 || c.Commission >= 1 {
		return fmt.Errorf("config: COMMISSION must be in [0, 1), got %f", c.Commission)
	}
	if c.Slippage < 0 || c.Slippage >= 1 {
		return fmt.Errorf("config: SLIPPAGE must be in [0, 1), got %f", c.Slippage)
	}
	if c.MaxLeverage > 1.0 {
		return fmt.Errorf("config: MAX_LEVERAGE > 1 is rejected (no leverage support), got %f", c.MaxLeverage)
	}
	if c.OptimizerMethod != "" && !c.OptimizerMethod.Valid() {
		return fmt.Errorf("config: unknown OPTIMIZER_METHOD %q", c.OptimizerMethod)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("config: INITIAL_CAPITAL must be > 0, got %f", c.InitialCapital)
	}
	return nil
}

// RiskConfig extracts the risk.Config subset.
func (c *BacktestConfig) RiskConfig() risk.Config {
	return risk.Config{MaxPositionSize: c.MaxPositionSize, MaxLeverage: c.MaxLeverage}
}

// StrategyConfig extracts the strategy.Config subset.
func (c *BacktestConfig) StrategyConfig() strategy.Config {
	return strategy.Config{
		LookbackPeriod:          c.LookbackPeriod,
		RebalanceFrequency:      c.RebalanceFrequency,
		PositionCount:           c.PositionCount,
		AbsoluteThreshold:       c.AbsoluteThreshold,
		SafeAsset:               c.SafeAsset,
		StrengthMethod:          c.StrengthMethod,
		StrengthScaleRange:      c.StrengthScaleRange,
		UseVolatilityAdjustment: c.UseVolatilityAdjustment,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
