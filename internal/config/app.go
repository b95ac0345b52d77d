package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type DbServer struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (config *DbServer) GetConnectionStr() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable pool_max_conns=10",
		config.User, config.Pass, config.Host, config.Port, config.Name,
	)
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Kafka struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

type Scheduler struct {
	CryptoOrdersIntervalSec  int `mapstructure:"crypto_orders_interval_sec"`
	RemittancesIntervalSec   int `mapstructure:"remittances_interval_sec"`
	MarketRefreshIntervalSec int `mapstructure:"market_refresh_interval_sec"`
}

type Matcher struct {
	AllowedSystems []string `mapstructure:"allowed_systems"`
	QuoteCurrency  string   `mapstructure:"quote_currency"`
	BaseCurrencies []string `mapstructure:"base_currencies"`
	ValidUntilSec  int      `mapstructure:"valid_until_sec"`
}

// StartingTime overrides the default settlement codes from the given local time of day onward.
type StartingTime struct {
	StartingTime    string `mapstructure:"starting_time"`
	SendDateCode    string `mapstructure:"send_date_code"`
	ReceiveDateCode string `mapstructure:"receive_date_code"`
}

type PSP struct {
	DailyMaxAmount     decimal.Decimal `mapstructure:"-"`
	TradeMinAmount     decimal.Decimal `mapstructure:"-"`
	TradeMaxAmount     decimal.Decimal `mapstructure:"-"`
	DailyMax           string          `mapstructure:"daily_max_amount"`
	TradeMin           string          `mapstructure:"trade_min_amount"`
	TradeMax           string          `mapstructure:"trade_max_amount"`
	MarketOpen         string          `mapstructure:"market_open"`
	MarketClose        string          `mapstructure:"market_close"`
	Location           string          `mapstructure:"location"`
	SettlementCurrency string          `mapstructure:"settlement_currency"`
	SendDateCode       string          `mapstructure:"send_date_code"`
	ReceiveDateCode    string          `mapstructure:"receive_date_code"`
	StartingTimes      []StartingTime  `mapstructure:"starting_times"`
	PageSize           int             `mapstructure:"page_size"`
	LockBackend        string          `mapstructure:"lock_backend"`
	LockTTLSec         int             `mapstructure:"lock_ttl_sec"`
}

type Gateway struct {
	Name                 string   `mapstructure:"name"`
	RestURL              string   `mapstructure:"rest_url"`
	WsURL                string   `mapstructure:"ws_url"`
	APIKey               string   `mapstructure:"api_key"`
	TimeoutSec           int      `mapstructure:"timeout_sec"`
	AllowedBases         []string `mapstructure:"allowed_bases"`
	QuotationTTLSec      int      `mapstructure:"quotation_ttl_sec"`
	MarketTTLSec         int      `mapstructure:"market_ttl_sec"`
	ReconnectCooldownSec int      `mapstructure:"reconnect_cooldown_sec"`
	DemandWindowSec      int      `mapstructure:"demand_window_sec"`
}

func (g Gateway) Timeout() time.Duration { return seconds(g.TimeoutSec, 10) }

func (g Gateway) QuotationTTL() time.Duration { return seconds(g.QuotationTTLSec, 10) }

func (g Gateway) MarketTTL() time.Duration { return seconds(g.MarketTTLSec, 600) }

func (g Gateway) ReconnectCooldown() time.Duration { return seconds(g.ReconnectCooldownSec, 30) }

func (g Gateway) DemandWindow() time.Duration { return seconds(g.DemandWindowSec, 300) }

type AppConfig struct {
	HTTPServer HTTPServer `mapstructure:"http_server"`
	DbServer   DbServer   `mapstructure:"db_server"`
	Redis      Redis      `mapstructure:"redis"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Logging    Logging    `mapstructure:"logging"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
	Matcher    Matcher    `mapstructure:"matcher"`
	PSP        PSP        `mapstructure:"psp"`
	Gateways   []Gateway  `mapstructure:"gateways"`
}

func Init() (*AppConfig, error) {
	// .env is optional in containers where the environment is injected directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath())
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	bindEnv(v)

	return load(v)
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_server.port", "8080")
	v.SetDefault("db_server.max_conns", 10)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.topic", "otc-settlement-events")
	v.SetDefault("logging.level", "info")
	v.SetDefault("scheduler.crypto_orders_interval_sec", 30)
	v.SetDefault("scheduler.remittances_interval_sec", 60)
	v.SetDefault("scheduler.market_refresh_interval_sec", 300)
	v.SetDefault("matcher.quote_currency", "USD")
	v.SetDefault("matcher.valid_until_sec", 10)
	v.SetDefault("psp.market_open", "09:00")
	v.SetDefault("psp.market_close", "16:00")
	v.SetDefault("psp.location", "UTC")
	v.SetDefault("psp.send_date_code", "D0")
	v.SetDefault("psp.receive_date_code", "D1")
	v.SetDefault("psp.page_size", 100)
	v.SetDefault("psp.lock_backend", "redis")
	v.SetDefault("psp.lock_ttl_sec", 30)
	v.SetDefault("psp.settlement_currency", "USD")
	v.SetDefault("psp.trade_min_amount", "0")
}

func bindEnv(v *viper.Viper) {
	// db server env vars
	_ = v.BindEnv("db_server.host", "DB_HOST")
	_ = v.BindEnv("db_server.port", "DB_PORT")
	_ = v.BindEnv("db_server.user", "DB_USER")
	_ = v.BindEnv("db_server.pass", "DB_PASS")
	_ = v.BindEnv("db_server.name", "DB_NAME")
	_ = v.BindEnv("db_server.max_conns", "DB_MAX_CONNS")

	// infrastructure
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("http_server.port", "HTTP_PORT")
}

func load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.PSP.parseAmounts(); err != nil {
		return nil, err
	}
	for i := range cfg.Gateways {
		// secrets stay out of config.yaml: GATEWAY_<NAME>_API_KEY
		if key := os.Getenv("GATEWAY_" + strings.ToUpper(cfg.Gateways[i].Name) + "_API_KEY"); key != "" {
			cfg.Gateways[i].APIKey = key
		}
	}
	return &cfg, nil
}

func (p *PSP) parseAmounts() error {
	var err error
	if p.DailyMaxAmount, err = decimal.NewFromString(p.DailyMax); err != nil {
		return fmt.Errorf("invalid psp.daily_max_amount %q: %w", p.DailyMax, err)
	}
	if p.TradeMinAmount, err = decimal.NewFromString(p.TradeMin); err != nil {
		return fmt.Errorf("invalid psp.trade_min_amount %q: %w", p.TradeMin, err)
	}
	if p.TradeMaxAmount, err = decimal.NewFromString(p.TradeMax); err != nil {
		return fmt.Errorf("invalid psp.trade_max_amount %q: %w", p.TradeMax, err)
	}
	return nil
}

func seconds(v, def int) time.Duration {
	if v <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(v) * time.Second
}
