package config

// EnvPrefix is passed to envconfig; individual tags carry the full names.
const EnvPrefix = "FASKET"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "FASKET_APP_ENV"
	EnvDBDSN  = "FASKET_DB_DSN"
	EnvDBHost = "FASKET_DB_HOST"
	EnvDBUser = "FASKET_DB_USER"
	EnvDBName = "FASKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
