package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	apiKeyENV         = "BINANCE_API_KEY"
	apiSecretENV      = "BINANCE_API_SECRET"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatIDTelegramENV = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
)

// ScanConfig — настройки сканера-промоутера.
type ScanConfig struct {
	// Файл со вселенной кандидатов, по одному символу на строку.
	UniverseFile string `yaml:"universe_file"`
	// Максимальный размер активного набора пар (existing_pairs_limit).
	Capacity int `yaml:"capacity"`
	// Порог RSI для добавления пары.
	RSIToAdd float64 `yaml:"rsi_to_add"`
	// Период длинной SMA для mean-reversion фильтра.
	SMAPeriod int `yaml:"sma_period"`
	// Сколько свечей тянуть для кандидата.
	Limit int `yaml:"limit"`

	CacheTTL  time.Duration
	PollDelay time.Duration
	Every     time.Duration
}

// Config ...
type Config struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	DB string `yaml:"db_dsn"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Квотируемая валюта, в которой покупаем и считаем профит.
	Bridge string `yaml:"bridge"`

	// Границы RSI-диапазона: внутри диапазона символ не оценивается.
	RSIOversold   float64 `yaml:"rsi_oversold"`
	RSIOverbought float64 `yaml:"rsi_overbought"`

	// Грубый таймфрейм для скрининга и тонкий для подтверждения.
	Interval     string `yaml:"interval"`
	FineInterval string `yaml:"fine_interval"`
	// Сколько свечей тянуть на символ.
	Limit int `yaml:"limit"`

	// Сумма входа в bridge-валюте.
	QtyToInvest float64 `yaml:"qty_to_invest"`
	// Доля от суммы входа: минимальный профит = qty_to_invest * cfg_min_profit.
	CfgMinProfit float64 `yaml:"cfg_min_profit"`
	// Комиссия, применяется один раз на продаже.
	CommissionRate float64 `yaml:"commission_rate"`

	// Сколько последних сделок просматривать при восстановлении позиции.
	TradeLookback int `yaml:"trade_lookback"`

	PairsFile  string `yaml:"pairs_file"`
	ProfitFile string `yaml:"profit_file"`

	Scan ScanConfig `yaml:"scan"`

	MonitorEvery time.Duration
}

// MinProfit — абсолютный порог профита для продажи.
func (c *Config) MinProfit() float64 {
	return c.QtyToInvest * c.CfgMinProfit
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		Bridge:         "USDT",
		RSIOversold:    floatFromEnv("RSI_OVERSOLD", 30),
		RSIOverbought:  floatFromEnv("RSI_OVERBOUGHT", 70),
		Interval:       getenvDefault("INTERVAL", "1h"),
		FineInterval:   getenvDefault("FINE_INTERVAL", "5m"),
		Limit:          intFromEnv("CANDLE_LIMIT", 100),
		CommissionRate: 0.001,
		TradeLookback:  intFromEnv("TRADE_LOOKBACK", 10),
		PairsFile:      getenvDefault("PAIRS_FILE", "trading_pairs.txt"),
		ProfitFile:     getenvDefault("PROFIT_FILE", "total_profit"),
		MonitorEvery:   durationFromEnv("MONITOR_EVERY", "5s"),
		Scan: ScanConfig{
			UniverseFile: getenvDefault("SCAN_LIST_FILE", "scan_list"),
			Capacity:     intFromEnv("EXISTING_PAIRS_LIMIT", 5),
			RSIToAdd:     floatFromEnv("RSI_TO_ADD", 30),
			SMAPeriod:    intFromEnv("SCAN_SMA_PERIOD", 200),
			Limit:        intFromEnv("SCAN_CANDLE_LIMIT", 200),
			CacheTTL:     durationFromEnv("SCAN_CACHE_TTL", "60s"),
			PollDelay:    durationFromEnv("SCAN_POLL_DELAY", "10s"),
			Every:        durationFromEnv("SCAN_EVERY", "30s"),
		},
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	if v := os.Getenv(apiKeyENV); v != "" {
		config.APIKey = v
	}
	if v := os.Getenv(apiSecretENV); v != "" {
		config.APISecret = v
	}
	if v := os.Getenv(tokenTelegramENV); v != "" {
		config.Telegram.Token = v
	}
	if v := os.Getenv(chatIDTelegramENV); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Telegram.ChatID = id
		}
	}
	if v := os.Getenv(databaseDSN); v != "" {
		config.DB = v
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
