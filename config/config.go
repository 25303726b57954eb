package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the typed view of the environment the binaries run with.
type Config struct {
	Environment string
	GinMode     string
	ServerPort  string

	StoreDriver   string // mysql | memory
	DBHost        string
	DBPort        string
	DBDatabase    string
	DBUsername    string
	DBPassword    string
	DebugSQL      bool
	NamedLockWait time.Duration

	JWTSecret      string
	JWTExpireHours int

	FrontendURL        string
	BackendURL         string
	AllowedOrigins     []string
	AllowedEmailDomain string
	AdminEmails        []string

	GoogleClientID     string
	GoogleClientSecret string

	MailBackend       string // smtp | sendgrid | console | kafka
	MailWorkerBackend string // backend cmd/mail-worker delivers through
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPass          string
	SMTPFrom          string
	SMTPSkipVerify    bool
	SendgridAPIKey    string

	KafkaBroker   string
	KafkaTopic    string
	KafkaGroupID  string
	KafkaUsername string
	KafkaPassword string

	CloudinaryURL string
	UploadPath    string

	DailyAddLimit int
	OTPCooldown   time.Duration
	SignupTTL     time.Duration
	NotifyTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	MonitorToken   string
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("STORE_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_DATABASE", "faculty_ranker")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("NAMED_LOCK_TIMEOUT", 5*time.Second)
	v.SetDefault("JWT_SECRET", "jwt-secret")
	v.SetDefault("JWT_EXPIRE_HOURS", 1)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("BACKEND_URL", "http://localhost:8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("ALLOWED_EMAIL_DOMAIN", "vitapstudent.ac.in")
	v.SetDefault("MAIL_BACKEND", "console")
	v.SetDefault("MAIL_WORKER_BACKEND", "smtp")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("KAFKA_TOPIC", "faculty-mail")
	v.SetDefault("KAFKA_GROUP_ID", "faculty-mail-worker")
	v.SetDefault("UPLOAD_PATH", "./uploads")
	v.SetDefault("DAILY_ADD_LIMIT", 3)
	v.SetDefault("OTP_COOLDOWN", 15*time.Minute)
	v.SetDefault("SIGNUP_TTL", 30*time.Minute)
	v.SetDefault("NOTIFY_TIMEOUT", 10*time.Second)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	return &Config{
		Environment: strings.ToLower(v.GetString("ENVIRONMENT")),
		GinMode:     v.GetString("GIN_MODE"),
		ServerPort:  v.GetString("SERVER_PORT"),

		StoreDriver:   strings.ToLower(v.GetString("STORE_DRIVER")),
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBDatabase:    v.GetString("DB_DATABASE"),
		DBUsername:    v.GetString("DB_USERNAME"),
		DBPassword:    v.GetString("DB_PASSWORD"),
		DebugSQL:      v.GetBool("DEBUG_SQL"),
		NamedLockWait: v.GetDuration("NAMED_LOCK_TIMEOUT"),

		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTExpireHours: v.GetInt("JWT_EXPIRE_HOURS"),

		FrontendURL:        strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		BackendURL:         strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		AllowedOrigins:     splitList(v.GetString("ALLOWED_ORIGINS")),
		AllowedEmailDomain: strings.ToLower(v.GetString("ALLOWED_EMAIL_DOMAIN")),
		AdminEmails:        splitList(strings.ToLower(v.GetString("ADMIN_EMAILS"))),

		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),

		MailBackend:       strings.ToLower(v.GetString("MAIL_BACKEND")),
		MailWorkerBackend: strings.ToLower(v.GetString("MAIL_WORKER_BACKEND")),
		SMTPHost:          v.GetString("SMTP_HOST"),
		SMTPPort:          v.GetInt("SMTP_PORT"),
		SMTPUser:          v.GetString("SMTP_USER"),
		SMTPPass:          v.GetString("SMTP_PASS"),
		SMTPFrom:          v.GetString("SMTP_FROM"),
		SMTPSkipVerify:    v.GetString("SMTP_SKIP_TLS_VERIFY") == "1",
		SendgridAPIKey:    v.GetString("SENDGRID_API_KEY"),

		KafkaBroker:   v.GetString("KAFKA_BROKER"),
		KafkaTopic:    v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:  v.GetString("KAFKA_GROUP_ID"),
		KafkaUsername: v.GetString("KAFKA_USERNAME"),
		KafkaPassword: v.GetString("KAFKA_PASSWORD"),

		CloudinaryURL: v.GetString("CLOUDINARY_URL"),
		UploadPath:    v.GetString("UPLOAD_PATH"),

		DailyAddLimit: v.GetInt("DAILY_ADD_LIMIT"),
		OTPCooldown:   v.GetDuration("OTP_COOLDOWN"),
		SignupTTL:     v.GetDuration("SIGNUP_TTL"),
		NotifyTimeout: v.GetDuration("NOTIFY_TIMEOUT"),

		RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		MonitorToken:   v.GetString("MONITOR_TOKEN"),
	}
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
