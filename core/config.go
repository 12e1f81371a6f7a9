package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDev  = "DEV"
	EnvTest = "TEST"
	EnvQA   = "QA"
	EnvProd = "PROD"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		RateLimit       float64 // requests per second per client
		RateBurst       int
		AllowOrigins    []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
		MaxIdleConns  int
		InMemory      bool // DEV only: run on the in-memory repositories
	}

	RedisConfig struct {
		Addr      string
		Password  string
		DB        int
		CourseTTL time.Duration
	}

	FirebaseConfig struct {
		ProjectID       string
		CredentialsFile string
	}

	LineConfig struct {
		ChannelSecret string
		ChannelToken  string
	}

	PaymentConfig struct {
		WebhookSecret string
		Currency      string
		PendingTTL    time.Duration
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		Timezone         string
		LocalTokenTTL    time.Duration
		RollbarToken     string
		SendgridAPIKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Firebase FirebaseConfig
		Line     LineConfig
		Payment  PaymentConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// Location returns the timezone learning days are counted in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UsesLocalIdentity reports whether bearer tokens are issued by the app itself instead of Firebase.
func (c *Config) UsesLocalIdentity() bool {
	return c.Env == EnvDev || c.Env == EnvTest
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Manabi")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "t9#v@2q!x-manabi-dev-secret-(c8m4y^w)p0")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Manabi <noreply@localhost>")
	v.SetDefault("timezone", "Asia/Tokyo")
	v.SetDefault("localTokenTTL", 7*24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridAPIKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.rateLimit", 20.0)
	v.SetDefault("server.rateBurst", 40)
	v.SetDefault("server.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "manabi")
	v.SetDefault("database.user", "manabi")
	v.SetDefault("database.password", "manabi")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.courseTTL", 10*time.Minute)

	v.SetDefault("firebase.projectID", "")
	v.SetDefault("firebase.credentialsFile", "")

	v.SetDefault("line.channelSecret", "")
	v.SetDefault("line.channelToken", "")

	v.SetDefault("payment.webhookSecret", "whsec-dev")
	v.SetDefault("payment.currency", "JPY")
	v.SetDefault("payment.pendingTTL", 24*time.Hour)
}

// loadDotEnv loads config/.env.<env> if it exists (ignored if it does not).
func loadDotEnv(env string) {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
}

// NewConfig reads the configuration from defaults, the optional dotenv file and the environment.
// Environment variables are prefixed with MANABI_, e.g. MANABI_DATABASE_HOST.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = EnvDev
	}
	loadDotEnv(env)

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	if env == EnvTest {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix("MANABI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatal(fmt.Errorf("config: invalid defaultFromEmail: %v", err))
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		Timezone:         v.GetString("timezone"),
		LocalTokenTTL:    v.GetDuration("localTokenTTL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridAPIKey"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			RateLimit:       v.GetFloat64("server.rateLimit"),
			RateBurst:       v.GetInt("server.rateBurst"),
			AllowOrigins:    v.GetStringSlice("server.allowOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
			MaxIdleConns:  v.GetInt("database.maxIdleConns"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("redis.addr"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			CourseTTL: v.GetDuration("redis.courseTTL"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("firebase.projectID"),
			CredentialsFile: v.GetString("firebase.credentialsFile"),
		},
		Line: LineConfig{
			ChannelSecret: v.GetString("line.channelSecret"),
			ChannelToken:  v.GetString("line.channelToken"),
		},
		Payment: PaymentConfig{
			WebhookSecret: v.GetString("payment.webhookSecret"),
			Currency:      v.GetString("payment.currency"),
			PendingTTL:    v.GetDuration("payment.pendingTTL"),
		},
	}
}

// NewTestConfig returns a Config suited for tests: no dotenv, no environment lookups.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	from, _ := mail.ParseAddress(v.GetString("defaultFromEmail"))
	return &Config{
		AppName:          v.GetString("appName"),
		Env:              EnvTest,
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "secret",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		Timezone:         "UTC",
		LocalTokenTTL:    time.Hour,
		Server: ServerConfig{
			Host:            ":0",
			ShutdownTimeout: time.Second,
			RateLimit:       1000,
			RateBurst:       1000,
			AllowOrigins:    []string{"*"},
		},
		Database: DatabaseConfig{InMemory: true},
		Redis:    RedisConfig{CourseTTL: time.Minute},
		Payment: PaymentConfig{
			WebhookSecret: "whsec-test",
			Currency:      "JPY",
			PendingTTL:    24 * time.Hour,
		},
	}
}
