package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		URL string
		TTL time.Duration
	}

	// AuthProviderConfig holds the identity provider settings shared with the web front end.
	AuthProviderConfig struct {
		URL        string
		AnonKey    string
		ServiceKey string
	}

	ClientConfig struct {
		APIBaseURL           string
		Timeout              time.Duration
		UnreadPollInterval   time.Duration
		CacheStaleAfter      time.Duration
		UnauthorizedRedirect string
	}

	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		WorkDir                   string
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridApiKey            string
		PrimaryColor              string
		AttendanceLockCron        string
		Server                    ServerConfig
		Database                  DatabaseConfig
		Redis                     RedisConfig
		AuthProvider              AuthProviderConfig
		Client                    ClientConfig

		defaultFromEmail string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "k9w!r2-d7$uq+b3x=mz&lfh0(t)#p8(#yg4j^$cegm5ena")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Shule <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("primaryColor", "#228be6")
	v.SetDefault("attendanceLockCron", "0 2 * * *")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 15*time.Minute)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "shule")
	v.SetDefault("database.user", "shule")
	v.SetDefault("database.password", "shule")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("client.apiBaseURL", "http://localhost:8000")
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.unreadPollInterval", 30*time.Second)
	v.SetDefault("client.cacheStaleAfter", time.Minute)
	v.SetDefault("client.unauthorizedRedirect", "/login")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	// unprefixed variables shared with the web front end & the hosting platform
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("client.apiBaseURL", "NEXT_PUBLIC_API_URL")
	_ = v.BindEnv("authProvider.url", "SUPABASE_URL")
	_ = v.BindEnv("authProvider.publicURL", "NEXT_PUBLIC_SUPABASE_URL")
	_ = v.BindEnv("authProvider.anonKey", "NEXT_PUBLIC_SUPABASE_ANON_KEY")
	_ = v.BindEnv("authProvider.serviceKey", "SUPABASE_SERVICE_KEY")

	authURL := v.GetString("authProvider.url")
	if authURL == "" {
		authURL = v.GetString("authProvider.publicURL")
	}

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		WorkDir:                   wd,
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		PrimaryColor:              v.GetString("primaryColor"),
		AttendanceLockCron:        v.GetString("attendanceLockCron"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis.url"),
			TTL: v.GetDuration("redis.ttl"),
		},
		AuthProvider: AuthProviderConfig{
			URL:        authURL,
			AnonKey:    v.GetString("authProvider.anonKey"),
			ServiceKey: v.GetString("authProvider.serviceKey"),
		},
		Client: ClientConfig{
			APIBaseURL:           strings.TrimSuffix(v.GetString("client.apiBaseURL"), "/"),
			Timeout:              v.GetDuration("client.timeout"),
			UnreadPollInterval:   v.GetDuration("client.unreadPollInterval"),
			CacheStaleAfter:      v.GetDuration("client.cacheStaleAfter"),
			UnauthorizedRedirect: v.GetString("client.unauthorizedRedirect"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}

// NewTestConfig returns a Config suitable for tests: no .env file, no environment lookups.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		Debug:                     false,
		TestMode:                  true,
		AppName:                   "Shule",
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		PrimaryColor:              "#228be6",
		AttendanceLockCron:        "0 2 * * *",
		Server: ServerConfig{
			Port:                      8000,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        15 * time.Minute,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
		},
		Database: DatabaseConfig{Engine: "memory"},
		Redis:    RedisConfig{TTL: time.Minute},
		Client: ClientConfig{
			APIBaseURL:           "http://localhost:8000",
			Timeout:              5 * time.Second,
			UnreadPollInterval:   time.Second,
			CacheStaleAfter:      time.Minute,
			UnauthorizedRedirect: "/login",
		},
		defaultFromEmail: "Shule <noreply@localhost>",
	}
}

// Getwd tries to find the module root (the directory holding go.mod).
// go-test changes the working directory to the package being tested, which breaks relative asset paths.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
