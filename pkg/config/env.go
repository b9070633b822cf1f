package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBDriver  = "STOREFRONT_DB_DRIVER"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBPort    = "STOREFRONT_DB_PORT"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBPass    = "STOREFRONT_DB_PASSWORD"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvAMQPURL   = "STOREFRONT_AMQP_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
