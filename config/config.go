package config

import (
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"logLevel"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type LedgerConfig struct {
	// VerifyInterval is how often the replay-vs-cache check runs, e.g. "10m".
	VerifyInterval string `mapstructure:"verifyInterval"`
}

type SeedConfig struct {
	SuperAdminEmail    string `mapstructure:"superAdminEmail"`
	SuperAdminPassword string `mapstructure:"superAdminPassword"`
	DemoData           bool   `mapstructure:"demoData"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	S3     S3Config     `mapstructure:"s3"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Seed   SeedConfig   `mapstructure:"seed"`
}

// LoadConfig reads config.yaml from path and overrides values with
// environment variables. A missing config file is not an error: the server
// can run on environment variables alone.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.logLevel", "SERVER_LOG_LEVEL")
	viper.BindEnv("mongo.uri", "MONGO_URI")
	viper.BindEnv("mongo.dbName", "MONGO_DBNAME")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	viper.BindEnv("s3.bucket", "S3_BUCKET")
	viper.BindEnv("s3.region", "S3_REGION")
	viper.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	viper.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	viper.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	viper.BindEnv("ledger.verifyInterval", "LEDGER_VERIFY_INTERVAL")
	viper.BindEnv("seed.superAdminEmail", "SEED_SUPERADMIN_EMAIL")
	viper.BindEnv("seed.superAdminPassword", "SEED_SUPERADMIN_PASSWORD")
	viper.BindEnv("seed.demoData", "SEED_DEMO_DATA")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.logLevel", "info")
	viper.SetDefault("jwt.expiration", "24h")
	viper.SetDefault("ledger.verifyInterval", "10m")

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return
}
