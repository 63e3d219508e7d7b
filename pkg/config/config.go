package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Settlement   SettlementConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FASKET_APP_ENV" required:"true"`
	Port         string `envconfig:"FASKET_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FASKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FASKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FASKET_SERVICE_KIND" default:"settlement-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"FASKET_DB_DSN"`
	Driver string `envconfig:"FASKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FASKET_DB_HOST"`
	LegacyPort     int    `envconfig:"FASKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FASKET_DB_USER"`
	LegacyPassword string `envconfig:"FASKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"FASKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"FASKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FASKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FASKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FASKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FASKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FASKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FASKET_REDIS_ADDR"`
	Password     string        `envconfig:"FASKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"FASKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FASKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FASKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FASKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FASKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FASKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"FASKET_AUTO_MIGRATE" default:"false"`
	AnalyticsExport bool `envconfig:"FASKET_FEATURE_ANALYTICS_EXPORT" default:"false"`
	AlertsEnabled   bool `envconfig:"FASKET_FEATURE_ALERTS" default:"true"`
}

type SettlementConfig struct {
	DefaultCurrency string        `envconfig:"FASKET_SETTLEMENT_DEFAULT_CURRENCY" default:"EGP"`
	CronInterval    time.Duration `envconfig:"FASKET_SETTLEMENT_CRON_INTERVAL" default:"1h"`
	ExportBatchSize int           `envconfig:"FASKET_SETTLEMENT_EXPORT_BATCH_SIZE" default:"500"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FASKET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FASKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FASKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AlertsTopic string `envconfig:"FASKET_PUBSUB_ALERTS_TOPIC" default:"fasket-admin-alerts"`
}

type BigQueryConfig struct {
	Dataset     string `envconfig:"FASKET_BIGQUERY_DATASET" default:"fasket"`
	LedgerTable string `envconfig:"FASKET_BIGQUERY_LEDGER_TABLE" default:"ledger_entries"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
