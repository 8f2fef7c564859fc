// Package config loads settings from an optional YAML file, defaults and
// AUDITIT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	DB        DBConfig        `koanf:"db"`
	JWT       JWTConfig       `koanf:"jwt"`
	DingTalk  DingTalkConfig  `koanf:"dingtalk"`
	Photos    PhotosConfig    `koanf:"photos"`
	Lifecycle LifecycleConfig `koanf:"lifecycle"`
	Log       LogConfig       `koanf:"log"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	// RateLimit is the number of requests per minute allowed per client IP.
	// Zero disables rate limiting.
	RateLimit int `koanf:"rate_limit"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `koanf:"path"`
}

// JWTConfig configures issued access tokens.
type JWTConfig struct {
	// Secret signs tokens. When empty a secret is generated and kept in the database.
	Secret   string        `koanf:"secret"`
	Issuer   string        `koanf:"issuer"`
	Audience string        `koanf:"audience"`
	Expiry   time.Duration `koanf:"expiry"`
}

// DingTalkConfig holds the DingTalk app credentials and API hosts.
type DingTalkConfig struct {
	AppKey    string `koanf:"app_key"`
	AppSecret string `koanf:"app_secret"`
	APIBase   string `koanf:"api_base"`
	OAPIBase  string `koanf:"oapi_base"`
}

// PhotosConfig configures photo processing and storage.
type PhotosConfig struct {
	// Backend is "fs" or "s3".
	Backend        string   `koanf:"backend"`
	Dir            string   `koanf:"dir"`
	URLPrefix      string   `koanf:"url_prefix"`
	MaxDimension   int      `koanf:"max_dimension"`
	JPEGQuality    int      `koanf:"jpeg_quality"`
	MaxUploadBytes int64    `koanf:"max_upload_bytes"`
	S3             S3Config `koanf:"s3"`
}

// S3Config configures the S3 photo backend.
type S3Config struct {
	Endpoint       string `koanf:"endpoint"`
	Region         string `koanf:"region"`
	Bucket         string `koanf:"bucket"`
	AccessKey      string `koanf:"access_key"`
	SecretKey      string `koanf:"secret_key"`
	ForcePathStyle bool   `koanf:"force_path_style"`
	KeyPrefix      string `koanf:"key_prefix"`
	PublicURL      string `koanf:"public_url"`
}

// LifecycleConfig tunes the item lifecycle engine.
type LifecycleConfig struct {
	StrictTransitions bool `koanf:"strict_transitions"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level    string `koanf:"level"`
	Encoding string `koanf:"encoding"`
	File     string `koanf:"file"`
}

// LoadDotEnv loads variables from .env files into the environment. Missing
// files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML file at path (if non-empty), applies defaults and
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	applyEnvOverrides(k)
	applyDefaults(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.addr", ":8080")
	setDefault(k, "http.read_header_timeout", 10*time.Second)
	setDefault(k, "http.read_timeout", 30*time.Second)
	setDefault(k, "http.write_timeout", 60*time.Second)
	setDefault(k, "http.idle_timeout", 120*time.Second)
	setDefault(k, "http.shutdown_timeout", 5*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.rate_limit", 300)

	setDefault(k, "db.path", "auditit.sqlite3")

	setDefault(k, "jwt.issuer", "auditit")
	setDefault(k, "jwt.audience", "auditit")
	setDefault(k, "jwt.expiry", 7*24*time.Hour)

	setDefault(k, "photos.backend", "fs")
	setDefault(k, "photos.dir", "photos")
	setDefault(k, "photos.url_prefix", "/photos/")
	setDefault(k, "photos.max_dimension", 1024)
	setDefault(k, "photos.jpeg_quality", 85)
	setDefault(k, "photos.max_upload_bytes", 10<<20)
	setDefault(k, "photos.s3.region", "us-east-1")
	setDefault(k, "photos.s3.force_path_style", true)
	setDefault(k, "photos.s3.key_prefix", "items/")

	setDefault(k, "log.level", "info")
	setDefault(k, "log.encoding", "console")
}

// envOverrides maps environment variables to string config keys.
var envOverrides = []struct {
	env string
	key string
}{
	{"AUDITIT_HTTP_ADDR", "http.addr"},
	{"AUDITIT_DB_PATH", "db.path"},
	{"AUDITIT_JWT_SECRET", "jwt.secret"},
	{"AUDITIT_JWT_ISSUER", "jwt.issuer"},
	{"AUDITIT_JWT_AUDIENCE", "jwt.audience"},
	{"AUDITIT_DINGTALK_APP_KEY", "dingtalk.app_key"},
	{"AUDITIT_DINGTALK_APP_SECRET", "dingtalk.app_secret"},
	{"AUDITIT_PHOTOS_BACKEND", "photos.backend"},
	{"AUDITIT_PHOTOS_DIR", "photos.dir"},
	{"AUDITIT_S3_ENDPOINT", "photos.s3.endpoint"},
	{"AUDITIT_S3_REGION", "photos.s3.region"},
	{"AUDITIT_S3_BUCKET", "photos.s3.bucket"},
	{"AUDITIT_S3_ACCESS_KEY", "photos.s3.access_key"},
	{"AUDITIT_S3_SECRET_KEY", "photos.s3.secret_key"},
	{"AUDITIT_S3_PUBLIC_URL", "photos.s3.public_url"},
	{"AUDITIT_LOG_LEVEL", "log.level"},
	{"AUDITIT_LOG_ENCODING", "log.encoding"},
	{"AUDITIT_LOG_FILE", "log.file"},
}

func applyEnvOverrides(k *koanf.Koanf) {
	for _, o := range envOverrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			k.Set(o.key, v)
		}
	}

	if origins := os.Getenv("AUDITIT_ALLOWED_ORIGINS"); origins != "" {
		var list []string
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				list = append(list, o)
			}
		}
		k.Set("http.allowed_origins", list)
	}
	if limit, ok := getInt("AUDITIT_RATE_LIMIT"); ok {
		k.Set("http.rate_limit", limit)
	}
	if hours, ok := getInt("AUDITIT_JWT_EXPIRY_HOURS"); ok && hours > 0 {
		k.Set("jwt.expiry", time.Duration(hours)*time.Hour)
	}
	if strict, ok := getBool("AUDITIT_STRICT_TRANSITIONS"); ok {
		k.Set("lifecycle.strict_transitions", strict)
	}
}

func getInt(key string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return 0, false
	}
	return v, true
}

func getBool(key string) (bool, bool) {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return false, false
	}
	return v, true
}

// setDefault only sets the value if the key doesn't already exist.
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Photos.Backend {
	case "fs":
		if c.Photos.Dir == "" {
			return errors.New("photos.dir is required for the fs backend")
		}
	case "s3":
		if c.Photos.S3.Bucket == "" {
			return errors.New("photos.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("photos.backend must be fs or s3, got %q", c.Photos.Backend)
	}

	switch c.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("log.encoding must be console or json, got %q", c.Log.Encoding)
	}

	if c.HTTP.RateLimit < 0 {
		return errors.New("http.rate_limit must not be negative")
	}
	if (c.DingTalk.AppKey == "") != (c.DingTalk.AppSecret == "") {
		return errors.New("dingtalk.app_key and dingtalk.app_secret must be set together")
	}
	return nil
}
