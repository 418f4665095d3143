package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTSecret       []byte
	RefreshSecret   []byte
	APISecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	FrontendOrigin string
	SecureCookies  bool

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	RedisURL string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		ServiceName: v.GetString("service_name"),
		ServerPort:  v.GetInt("server_port"),
		LogLevel:    v.GetString("log_level"),

		DBDriver:    strings.ToLower(v.GetString("db_driver")),
		DatabaseURL: v.GetString("database_url"),

		JWTSecret:       []byte(v.GetString("jwt_secret")),
		RefreshSecret:   []byte(v.GetString("refresh_secret")),
		APISecret:       v.GetString("api_secret"),
		AccessTokenTTL:  v.GetDuration("access_token_ttl"),
		RefreshTokenTTL: v.GetDuration("refresh_token_ttl"),

		FrontendOrigin: v.GetString("frontend_origin"),
		SecureCookies:  v.GetBool("secure_cookies"),

		KafkaBrokers: CSV(v.GetString("kafka_brokers")),

		ESURL:      v.GetString("es_url"),
		ESUser:     v.GetString("es_user"),
		ESPassword: v.GetString("es_password"),
		ESIndex:    v.GetString("es_index"),

		MinioEndpoint:  v.GetString("minio_endpoint"),
		MinioAccessKey: v.GetString("minio_access_key"),
		MinioSecretKey: v.GetString("minio_secret_key"),
		MinioBucket:    v.GetString("minio_bucket"),
		MinioUseSSL:    v.GetBool("minio_use_ssl"),

		RedisURL: v.GetString("redis_url"),
	}

	if cfg.AccessTokenTTL <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}

	return cfg, nil
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) == 0 {
		errs = append(errs, missing("JWT_SECRET"))
	}
	if len(c.RefreshSecret) == 0 {
		errs = append(errs, missing("REFRESH_SECRET"))
	}
	if len(c.JWTSecret) > 0 && string(c.JWTSecret) == string(c.RefreshSecret) {
		errs = append(errs, errors.New("JWT_SECRET and REFRESH_SECRET must differ"))
	}
	if c.APISecret == "" {
		errs = append(errs, missing("API_SECRET"))
	}
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, missing("DATABASE_URL"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "etutoring")
	v.SetDefault("server_port", 8080)
	v.SetDefault("log_level", "info")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("database_url", "")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("refresh_secret", "")
	v.SetDefault("api_secret", "")
	v.SetDefault("access_token_ttl", "1h")
	v.SetDefault("refresh_token_ttl", "168h")

	v.SetDefault("frontend_origin", "*")
	v.SetDefault("secure_cookies", true)

	v.SetDefault("kafka_brokers", "")

	v.SetDefault("es_url", "")
	v.SetDefault("es_user", "")
	v.SetDefault("es_password", "")
	v.SetDefault("es_index", "etutoring")

	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "documents")
	v.SetDefault("minio_use_ssl", false)

	v.SetDefault("redis_url", "")
}

func missing(env string) error {
	return fmt.Errorf("missing required env %s", env)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
