// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. It is constructed once
// at startup and passed by value into component constructors; nothing mutates
// it after Load returns.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Portal  PortalConfig  `mapstructure:"portal" yaml:"portal"`
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to terminal colors for the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome process launched through chromedp.
type BrowserConfig struct {
	Headless     bool     `mapstructure:"headless" yaml:"headless"`
	ExecPath     string   `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent    string   `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	Args         []string `mapstructure:"args" yaml:"args"`
}

// NetworkConfig holds page-level wait budgets. Every wait in the scraper is
// bounded by one of these values.
type NetworkConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	NetworkIdle       time.Duration `mapstructure:"network_idle" yaml:"network_idle"`
	ElementVisible    time.Duration `mapstructure:"element_visible" yaml:"element_visible"`
	ElementWait       time.Duration `mapstructure:"element_wait" yaml:"element_wait"`
	URLWait           time.Duration `mapstructure:"url_wait" yaml:"url_wait"`
}

// PortalConfig identifies the target portal and the credentials used against
// its identity provider. Credentials come from WEBTOP_PORTAL_USERNAME /
// WEBTOP_PORTAL_PASSWORD and are never logged in plaintext.
type PortalConfig struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	LoginURL       string `mapstructure:"login_url" yaml:"login_url"`
	StudentCardURL string `mapstructure:"student_card_url" yaml:"student_card_url"`
	HomeworkURL    string `mapstructure:"homework_url" yaml:"homework_url"`
	Username       string `mapstructure:"username" yaml:"-"`
	Password       string `mapstructure:"password" yaml:"-"`
}

// ScraperConfig holds flow-level knobs: retry policies, settle delays and
// pagination bounds.
type ScraperConfig struct {
	MaxPaginationPages int           `mapstructure:"max_pagination_pages" yaml:"max_pagination_pages"`
	LoginRedirect      time.Duration `mapstructure:"login_redirect" yaml:"login_redirect"`
	ChallengeGrace     time.Duration `mapstructure:"challenge_grace" yaml:"challenge_grace"`
	ChallengeWait      time.Duration `mapstructure:"challenge_wait" yaml:"challenge_wait"`
	EnablePollAttempts int           `mapstructure:"enable_poll_attempts" yaml:"enable_poll_attempts"`
	EnablePollInterval time.Duration `mapstructure:"enable_poll_interval" yaml:"enable_poll_interval"`
	RedirectPoll       time.Duration `mapstructure:"redirect_poll" yaml:"redirect_poll"`
	SettleShort        time.Duration `mapstructure:"settle_short" yaml:"settle_short"`
	SettleMedium       time.Duration `mapstructure:"settle_medium" yaml:"settle_medium"`
	SettleLong         time.Duration `mapstructure:"settle_long" yaml:"settle_long"`
	SettleExtraLong    time.Duration `mapstructure:"settle_extra_long" yaml:"settle_extra_long"`
	AfterFill          time.Duration `mapstructure:"after_fill" yaml:"after_fill"`
	AfterTabSwitch     time.Duration `mapstructure:"after_tab_switch" yaml:"after_tab_switch"`
	AfterPageLoad      time.Duration `mapstructure:"after_page_load" yaml:"after_page_load"`
	AfterLogin         time.Duration `mapstructure:"after_login" yaml:"after_login"`
	ChallengeSettle    time.Duration `mapstructure:"challenge_settle" yaml:"challenge_settle"`
	DebugScreenshot    string        `mapstructure:"debug_screenshot" yaml:"debug_screenshot"`
}

// SetDefaults registers every default value on the given viper instance.
// Timeouts and delays mirror the cadence the portal tolerates in practice.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "webtop-cli")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")

	v.SetDefault("network.navigation_timeout", 60*time.Second)
	v.SetDefault("network.network_idle", 10*time.Second)
	v.SetDefault("network.element_visible", 5*time.Second)
	v.SetDefault("network.element_wait", 10*time.Second)
	v.SetDefault("network.url_wait", 10*time.Second)

	v.SetDefault("portal.base_url", "https://webtop.smartschool.co.il")
	v.SetDefault("portal.login_url", "https://webtop.smartschool.co.il/account/login")
	v.SetDefault("portal.student_card_url", "https://webtop.smartschool.co.il/Student_Card")
	v.SetDefault("portal.homework_url", "https://webtop.smartschool.co.il/Student_Card/11")

	v.SetDefault("scraper.max_pagination_pages", 100)
	v.SetDefault("scraper.login_redirect", 30*time.Second)
	v.SetDefault("scraper.challenge_grace", 5*time.Second)
	v.SetDefault("scraper.challenge_wait", 10*time.Second)
	v.SetDefault("scraper.enable_poll_attempts", 10)
	v.SetDefault("scraper.enable_poll_interval", 500*time.Millisecond)
	v.SetDefault("scraper.redirect_poll", time.Second)
	v.SetDefault("scraper.settle_short", 300*time.Millisecond)
	v.SetDefault("scraper.settle_medium", 500*time.Millisecond)
	v.SetDefault("scraper.settle_long", time.Second)
	v.SetDefault("scraper.settle_extra_long", 3*time.Second)
	v.SetDefault("scraper.after_fill", 500*time.Millisecond)
	v.SetDefault("scraper.after_tab_switch", 2*time.Second)
	v.SetDefault("scraper.after_page_load", 2*time.Second)
	v.SetDefault("scraper.after_login", 2*time.Second)
	v.SetDefault("scraper.challenge_settle", 2*time.Second)
	v.SetDefault("scraper.debug_screenshot", "login_debug.png")
}

// Load reads configuration from the optional file path, the environment
// (WEBTOP_ prefix) and the registered defaults, in the usual viper
// precedence order.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("WEBTOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys it has seen; bind the credential keys
	// explicitly so WEBTOP_PORTAL_USERNAME / WEBTOP_PORTAL_PASSWORD are
	// picked up even when no config file mentions them.
	_ = v.BindEnv("portal.username")
	_ = v.BindEnv("portal.password")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars are enough.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration built purely from defaults. Tests use it
// as a starting point and override the delay fields to keep runs fast.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// The defaults map is built above; unmarshalling it cannot fail.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// HasCredentials reports whether both credential values are present.
func (p PortalConfig) HasCredentials() bool {
	return p.Username != "" && p.Password != ""
}
