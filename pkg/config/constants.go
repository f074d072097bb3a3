package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "LUMENCHAT_DB_DSN"
	EnvDBHost = "LUMENCHAT_DB_HOST"
	EnvDBUser = "LUMENCHAT_DB_USER"
	EnvDBName = "LUMENCHAT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
