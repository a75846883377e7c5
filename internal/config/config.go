package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var log = InitLogger()

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type LedgerConfig struct {
	Currency          string
	MaxDeposit        decimal.Decimal
	CommissionOnStake bool
}

type SchedulerConfig struct {
	RoiPayout        string
	MaturitySweep    string
	CommissionPayout string
	CacheSweep       string
}

type NotificationConfig struct {
	TelegramToken string
	KafkaBrokers  []string
	KafkaTopic    string
}

type Config struct {
	Postgres        *PostgresConfig
	RedisURL        string
	Ledger          LedgerConfig
	Scheduler       SchedulerConfig
	Notification    NotificationConfig
	MetricsAddr     string
	PaymentDedupTTL time.Duration
	Tiers           []TierConfig
}

// TierConfig mirrors yield.Tier so the catalog can be overridden from a file
// without the config package importing the simulator.
type TierConfig struct {
	Name               string  `mapstructure:"name"`
	MinimumStake       float64 `mapstructure:"minimum_stake"`
	DailyRoiMin        float64 `mapstructure:"daily_roi_min"`
	DailyRoiMax        float64 `mapstructure:"daily_roi_max"`
	TradingHoursPerDay float64 `mapstructure:"trading_hours_per_day"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "stakeledger")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("LEDGER_CURRENCY", "USD")
	v.SetDefault("LEDGER_MAX_DEPOSIT", "1000000")
	v.SetDefault("LEDGER_COMMISSION_ON_STAKE", true)
	v.SetDefault("KAFKA_NOTIFICATION_TOPIC", "ledger.notifications")
	v.SetDefault("CRON_ROI_PAYOUT", "0 0 * * *")
	v.SetDefault("CRON_MATURITY_SWEEP", "*/15 * * * *")
	v.SetDefault("CRON_COMMISSION_PAYOUT", "30 0 * * *")
	v.SetDefault("CRON_CACHE_SWEEP", "@every 5m")
	v.SetDefault("METRICS_ADDR", ":9102")
	v.SetDefault("PAYMENT_DEDUP_TTL", "72h")
}

// InitConfig reads .env (if present), the process environment and the optional
// LEDGER_CONFIG_FILE.
func InitConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded: ", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("LEDGER_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			log.Error("Error reading config file: ", err)
			return nil, err
		}
	}

	maxDeposit, err := decimal.NewFromString(v.GetString("LEDGER_MAX_DEPOSIT"))
	if err != nil {
		log.Error("Error parsing LEDGER_MAX_DEPOSIT, using 1000000")
		maxDeposit = decimal.NewFromInt(1_000_000)
	}

	cfg := &Config{
		Postgres: LoadPostgresConfig(v),
		RedisURL: v.GetString("REDIS_URL"),
		Ledger: LedgerConfig{
			Currency:          v.GetString("LEDGER_CURRENCY"),
			MaxDeposit:        maxDeposit,
			CommissionOnStake: v.GetBool("LEDGER_COMMISSION_ON_STAKE"),
		},
		Scheduler: SchedulerConfig{
			RoiPayout:        v.GetString("CRON_ROI_PAYOUT"),
			MaturitySweep:    v.GetString("CRON_MATURITY_SWEEP"),
			CommissionPayout: v.GetString("CRON_COMMISSION_PAYOUT"),
			CacheSweep:       v.GetString("CRON_CACHE_SWEEP"),
		},
		Notification: NotificationConfig{
			TelegramToken: v.GetString("TELEGRAM_BOT_TOKEN"),
			KafkaBrokers:  splitList(v.GetString("KAFKA_BROKERS")),
			KafkaTopic:    v.GetString("KAFKA_NOTIFICATION_TOPIC"),
		},
		MetricsAddr:     v.GetString("METRICS_ADDR"),
		PaymentDedupTTL: v.GetDuration("PAYMENT_DEDUP_TTL"),
	}

	if v.IsSet("tiers") {
		if err := v.UnmarshalKey("tiers", &cfg.Tiers); err != nil {
			log.Error("Error parsing tiers: ", err)
			return nil, err
		}
	}

	return cfg, nil
}

func LoadPostgresConfig(v *viper.Viper) *PostgresConfig {
	return &PostgresConfig{
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		DBName:   v.GetString("DB_NAME"),
		SSLMode:  v.GetString("DB_SSLMODE"),
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
