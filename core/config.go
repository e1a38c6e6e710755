package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	// Config holds all application settings. It is loaded once at process
	// start and passed to services explicitly.
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		Build    string

		AppName         string
		SecretKey       string
		WorkDir         string
		FrontendBaseURL string
		DefaultFromName string
		DefaultFromAddr string
		SupportEmail    string
		OperatorEmail   string // receives operator notifications (monthly reminders)
		SendgridAPIKey  string
		RollbarToken    string

		SessionTTL                time.Duration
		PasswordResetTimeoutDelta time.Duration
		TrialPeriodDays           int

		Server   ServerConfig
		Database DatabaseConfig
		Uploads  UploadsConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	UploadsConfig struct {
		Dir                 string
		MaxPDFBytes         int64
		MaxMasterPDFBytes   int64
		MaxSpreadsheetBytes int64
		MaxReceiptBytes     int64
	}
)

func (dc DatabaseConfig) Address() string {
	return dc.Host + ":" + dc.Port
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

// NewConfig loads settings from defaults, an optional config/.env.<env>
// file and the environment (prefixed with the current env name).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "MigsList")
	v.SetDefault("secretKey", "x1u%+bq)d5m^t(78_wle&^zg$=#-j0c@qk4rv!y6*2sofnap39")
	v.SetDefault("workDir", mustGetwd())
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "MIGS List")
	v.SetDefault("defaultFromEmail", "noreply@migslist.com")
	v.SetDefault("supportEmail", "support@migslist.com")
	v.SetDefault("operatorEmail", "wayne@migslist.com")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sessionTTL", 24*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", time.Hour)
	v.SetDefault("trialPeriodDays", 30)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "migslist")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "migslist")
	v.SetDefault("database.password", "migslist")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("uploads.dir", filepath.Join(mustGetwd(), "uploads"))
	v.SetDefault("uploads.maxPDFBytes", int64(5<<20))
	v.SetDefault("uploads.maxMasterPDFBytes", int64(10<<20))
	v.SetDefault("uploads.maxSpreadsheetBytes", int64(5<<20))
	v.SetDefault("uploads.maxReceiptBytes", int64(5<<20))

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(mustGetwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         v.GetString("workDir"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromName: v.GetString("defaultFromName"),
		DefaultFromAddr: v.GetString("defaultFromEmail"),
		SupportEmail:    v.GetString("supportEmail"),
		OperatorEmail:   v.GetString("operatorEmail"),
		SendgridAPIKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),

		SessionTTL:                v.GetDuration("sessionTTL"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		TrialPeriodDays:           v.GetInt("trialPeriodDays"),

		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Name:          v.GetString("database.name"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Uploads: UploadsConfig{
			Dir:                 v.GetString("uploads.dir"),
			MaxPDFBytes:         v.GetInt64("uploads.maxPDFBytes"),
			MaxMasterPDFBytes:   v.GetInt64("uploads.maxMasterPDFBytes"),
			MaxSpreadsheetBytes: v.GetInt64("uploads.maxSpreadsheetBytes"),
			MaxReceiptBytes:     v.GetInt64("uploads.maxReceiptBytes"),
		},
	}
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}
