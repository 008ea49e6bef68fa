package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devSecretKey = "dev-secret-key-change-me"

var defaultCORSOrigins = []string{
	"https://neuraclaritytech.com",
	"https://www.neuraclaritytech.com",
	"https://chiefaiinsights.com",
	"https://www.chiefaiinsights.com",
	"http://localhost:3000",
	"http://localhost:5173",
}

type Config struct {
	AppEnv     string
	ServerPort int
	LogLevel   string
	LogFormat  string

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	SecretKey       []byte
	Algorithm       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	CORSOrigins          []string
	LoginRatePerMinute   int
	RefreshPurgeInterval time.Duration

	KafkaBrokers     []string
	KafkaUserTopic   string
	KafkaIntakeTopic string

	ESURL              string
	ESUser             string
	ESPassword         string
	ESSubmissionsIndex string

	GoogleServiceAccountJSON string
	GoogleSheetID            string
	GoogleSheetRange         string

	MailServer   string
	MailPort     int
	MailUsername string
	MailPassword string
	MailFrom     string
	AdminEmail   string
}

// LoadDotEnv loads .env into the process environment when the file exists.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("Notice: %s file not found: %v. Using system environment variables", path, err)
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:     EnvDefault("APP_ENV", "development"),
		ServerPort: EnvIntDefault("SERVER_PORT", 8000),
		LogLevel:   EnvDefault("LOG_LEVEL", "info"),
		LogFormat:  EnvDefault("LOG_FORMAT", "json"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: EnvIntDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns: EnvIntDefault("DB_MAX_IDLE_CONNS", 5),

		SecretKey:       []byte(os.Getenv("SECRET_KEY")),
		Algorithm:       EnvDefault("ALGORITHM", "HS256"),
		AccessTokenTTL:  time.Duration(EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTokenTTL: time.Duration(EnvIntDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		BcryptCost:      EnvIntDefault("BCRYPT_COST", 10),

		CORSOrigins:          defaultCORSOrigins,
		LoginRatePerMinute:   EnvIntDefault("LOGIN_RATE_PER_MIN", 10),
		RefreshPurgeInterval: EnvDurationDefault("REFRESH_PURGE_INTERVAL", time.Hour),

		KafkaBrokers:     CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaUserTopic:   EnvDefault("KAFKA_USER_TOPIC", "user_events"),
		KafkaIntakeTopic: EnvDefault("KAFKA_INTAKE_TOPIC", "intake_events"),

		ESURL:              os.Getenv("ES_URL"),
		ESUser:             os.Getenv("ES_USER"),
		ESPassword:         os.Getenv("ES_PASSWORD"),
		ESSubmissionsIndex: EnvDefault("ES_SUBMISSIONS_INDEX", "submissions"),

		GoogleServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleSheetID:            os.Getenv("GOOGLE_SHEET_ID"),
		GoogleSheetRange:         EnvDefault("GOOGLE_SHEET_RANGE", "Sheet1!A1"),

		MailServer:   EnvDefault("MAIL_SERVER", "smtp.gmail.com"),
		MailPort:     EnvIntDefault("MAIL_PORT", 587),
		MailUsername: os.Getenv("MAIL_USERNAME"),
		MailPassword: os.Getenv("MAIL_PASSWORD"),
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),
	}
	cfg.MailFrom = EnvDefault("MAIL_FROM", cfg.MailUsername)

	if origins := CSV(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}

	if len(cfg.SecretKey) == 0 && !cfg.IsProduction() {
		cfg.SecretKey = []byte(devSecretKey)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.SecretKey) == 0 {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("ALGORITHM %q is not supported", c.Algorithm))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_EXPIRE_DAYS must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.ServerPort)
}

func (c *Config) SheetsEnabled() bool {
	return c.GoogleServiceAccountJSON != "" && c.GoogleSheetID != ""
}

func (c *Config) MailEnabled() bool {
	return c.MailUsername != "" && c.MailPassword != ""
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

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, def)
		return def
	}
	return n
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid value for %s, using default %s", key, def)
		return def
	}
	return d
}
