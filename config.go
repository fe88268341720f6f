package qbt

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/jfxdev/go-qbtapi/request"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultSessionDuration = 24 * time.Hour
	DefaultUserAgent       = "go-qbtapi/1.0"

	// DefaultEnvPrefix prefixes the variables read by ConfigFromEnv.
	DefaultEnvPrefix = "QBITTORRENT"

	maxCredentialLength = 255
)

var rateLimitPattern = regexp.MustCompile(`^(\d+)/(minute|second)$`)

// Config contains runtime client settings and credentials. Zero durations
// and an empty user agent fall back to the defaults above.
type Config struct {
	BaseURL  string
	Username string
	Password string

	RequestTimeout time.Duration
	ConnectTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	SSLCertPath        string

	ProxyURL      string
	ProxyUsername string
	ProxyPassword string

	UserAgent string

	// SessionDuration is the assumed session lifetime when the daemon does
	// not announce one in the login cookie.
	SessionDuration time.Duration

	// RateLimit throttles requests, e.g. "10/second" or "200/minute".
	RateLimit string

	LogLevel string
	LogFile  string
	Debug    bool
}

// fileConfig is the on-disk and map representation. Durations are seconds.
type fileConfig struct {
	BaseURL         string  `json:"base_url"`
	Username        string  `json:"username"`
	Password        string  `json:"password"`
	Timeout         float64 `json:"timeout"`
	ConnectTimeout  float64 `json:"connect_timeout"`
	VerifySSL       *bool   `json:"verify_ssl"`
	SSLCertPath     string  `json:"ssl_cert_path"`
	Proxy           string  `json:"proxy"`
	ProxyAuth       string  `json:"proxy_auth"`
	UserAgent       string  `json:"user_agent"`
	SessionDuration float64 `json:"session_duration"`
	RateLimit       string  `json:"rate_limit"`
	LogLevel        string  `json:"log_level"`
	LogFile         string  `json:"log_file"`
	Debug           bool    `json:"debug"`
}

func (f fileConfig) toConfig() Config {
	c := Config{
		BaseURL:         f.BaseURL,
		Username:        f.Username,
		Password:        f.Password,
		RequestTimeout:  seconds(f.Timeout),
		ConnectTimeout:  seconds(f.ConnectTimeout),
		SSLCertPath:     f.SSLCertPath,
		ProxyURL:        f.Proxy,
		UserAgent:       f.UserAgent,
		SessionDuration: seconds(f.SessionDuration),
		RateLimit:       f.RateLimit,
		LogLevel:        f.LogLevel,
		LogFile:         f.LogFile,
		Debug:           f.Debug,
	}
	if f.VerifySSL != nil {
		c.InsecureSkipVerify = !*f.VerifySSL
	}
	c.ProxyUsername, c.ProxyPassword = splitProxyAuth(f.ProxyAuth)
	return c
}

// withDefaults fills zero values with the package defaults.
func (c Config) withDefaults() Config {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.SessionDuration == 0 {
		c.SessionDuration = DefaultSessionDuration
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	return c
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	fields := map[string]string{}

	if c.BaseURL == "" {
		fields["base_url"] = "is required"
	} else if _, err := parseBaseURL(c.BaseURL); err != nil {
		fields["base_url"] = "must be an absolute http(s) URL"
	}

	if (c.Username == "") != (c.Password == "") {
		fields["credentials"] = "username and password must be set together"
	}
	if utf8.RuneCountInString(c.Username) > maxCredentialLength {
		fields["username"] = fmt.Sprintf("must be at most %d characters", maxCredentialLength)
	}
	if utf8.RuneCountInString(c.Password) > maxCredentialLength {
		fields["password"] = fmt.Sprintf("must be at most %d characters", maxCredentialLength)
	}

	if c.RequestTimeout < 0 {
		fields["timeout"] = "must be positive"
	}
	if c.ConnectTimeout < 0 {
		fields["connect_timeout"] = "must be positive"
	}
	if c.SessionDuration < 0 {
		fields["session_duration"] = "must be positive"
	}

	if c.SSLCertPath != "" {
		if _, err := os.Stat(c.SSLCertPath); err != nil {
			fields["ssl_cert_path"] = "file not readable"
		}
	}

	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		switch {
		case err != nil || u.Host == "":
			fields["proxy"] = "must be a URL such as http://host:port or socks5://host:port"
		case u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "socks5" && u.Scheme != "socks5h":
			fields["proxy"] = "scheme must be http, https, socks5 or socks5h"
		}
	} else if c.ProxyUsername != "" {
		fields["proxy_auth"] = "set without a proxy"
	}

	if c.RateLimit != "" && !rateLimitPattern.MatchString(c.RateLimit) {
		fields["rate_limit"] = `must look like "10/second" or "200/minute"`
	}

	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
			fields["log_level"] = "unknown level"
		}
	}

	if len(fields) == 0 {
		return nil
	}
	e := NewClientError(KindConfig, ErrorCodeConfig, "invalid configuration", nil, true)
	e.Fields = fields
	return e
}

// With applies all mutators to a copy of c and validates the result once.
func (c Config) With(mutators ...func(*Config)) (Config, error) {
	for _, m := range mutators {
		m(&c)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// clientOptions maps the config onto transport connection settings.
func (c Config) clientOptions() request.ClientOptions {
	return request.ClientOptions{
		Timeout:            c.RequestTimeout,
		ConnectTimeout:     c.ConnectTimeout,
		InsecureSkipVerify: c.InsecureSkipVerify,
		CertPath:           c.SSLCertPath,
		ProxyURL:           c.ProxyURL,
		ProxyUsername:      c.ProxyUsername,
		ProxyPassword:      c.ProxyPassword,
	}
}

// rateLimiter builds the limiter described by RateLimit, nil when unset.
func (c Config) rateLimiter() *rate.Limiter {
	m := rateLimitPattern.FindStringSubmatch(c.RateLimit)
	if m == nil {
		return nil
	}
	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return nil
	}
	switch m[2] {
	case "minute":
		burst := int(math.Max(1, float64(count)*0.25))
		return rate.NewLimiter(rate.Limit(float64(count)/60.0), burst)
	default:
		return rate.NewLimiter(rate.Limit(count), count)
	}
}

// LoadConfigFile reads a JSON configuration file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config file")
	}
	var f fileConfig
	if err := json.Unmarshal(data, &f); err != nil {
		return Config{}, errors.Wrapf(err, "decode config file %s", path)
	}
	return f.toConfig(), nil
}

// ConfigFromMap builds a Config from a map using the config file keys.
func ConfigFromMap(m map[string]any) (Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Config{}, errors.Wrap(err, "encode config map")
	}
	var f fileConfig
	if err := json.Unmarshal(data, &f); err != nil {
		return Config{}, errors.Wrap(err, "decode config map")
	}
	return f.toConfig(), nil
}

// ConfigFromEnv reads PREFIX_BASE_URL, PREFIX_USERNAME, PREFIX_PASSWORD,
// PREFIX_TIMEOUT, PREFIX_CONNECT_TIMEOUT (seconds), PREFIX_VERIFY_SSL,
// PREFIX_SSL_CERT_PATH, PREFIX_PROXY, PREFIX_PROXY_AUTH (user:pass),
// PREFIX_USER_AGENT, PREFIX_RATE_LIMIT, PREFIX_LOG_LEVEL and PREFIX_DEBUG.
// Unset variables leave the zero value.
func ConfigFromEnv(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	get := func(name string) string {
		return strings.TrimSpace(os.Getenv(prefix + "_" + name))
	}

	c := Config{
		BaseURL:     get("BASE_URL"),
		Username:    get("USERNAME"),
		Password:    os.Getenv(prefix + "_PASSWORD"),
		SSLCertPath: get("SSL_CERT_PATH"),
		ProxyURL:    get("PROXY"),
		UserAgent:   get("USER_AGENT"),
		RateLimit:   get("RATE_LIMIT"),
		LogLevel:    get("LOG_LEVEL"),
		LogFile:     get("LOG_FILE"),
	}
	c.ProxyUsername, c.ProxyPassword = splitProxyAuth(get("PROXY_AUTH"))

	fields := map[string]string{}
	for name, dst := range map[string]*time.Duration{
		"TIMEOUT":         &c.RequestTimeout,
		"CONNECT_TIMEOUT": &c.ConnectTimeout,
	} {
		if v := get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				fields[prefix+"_"+name] = "must be a number of seconds"
				continue
			}
			*dst = seconds(f)
		}
	}
	if v := get("VERIFY_SSL"); v != "" {
		verify, err := parseBool(v)
		if err != nil {
			fields[prefix+"_VERIFY_SSL"] = err.Error()
		}
		c.InsecureSkipVerify = !verify
	}
	if v := get("DEBUG"); v != "" {
		debug, err := parseBool(v)
		if err != nil {
			fields[prefix+"_DEBUG"] = err.Error()
		}
		c.Debug = debug
	}

	if len(fields) > 0 {
		e := NewClientError(KindConfig, ErrorCodeConfig, "invalid environment configuration", nil, true)
		e.Fields = fields
		return Config{}, e
	}
	return c, nil
}

// parseBool accepts "true"/"1" and "false"/"0" only.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q: use true, false, 1 or 0", v)
}

func splitProxyAuth(auth string) (string, string) {
	if auth == "" {
		return "", ""
	}
	user, pass, _ := strings.Cut(auth, ":")
	return user, pass
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
