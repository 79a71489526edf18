package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"sugarcrm-client/internal/domain"
)

// Environment variables read by Load.
const (
	EnvConfigPath = "SUGARCLI_CONFIG"
	EnvConfigKey  = "SUGARCLI_CONFIG_KEY"
	envPrefix     = "SUGARCLI_"
	secretPrefix  = "enc:"
)

// Config is the top-level application configuration.
type Config struct {
	CRM       CRMConfig       `yaml:"crm"`
	Transport TransportConfig `yaml:"transport"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Audit     AuditConfig     `yaml:"audit"`
}

// CRMConfig identifies the instance and the web-service user.
type CRMConfig struct {
	URL      string `yaml:"url"`      // instance base URL, no trailing slash
	Login    string `yaml:"login"`    // web-service user name
	Password string `yaml:"password"` // plaintext or "enc:..."
	// VerifyPeer controls TLS certificate verification. Disable only for
	// instances with self-signed certificates.
	VerifyPeer bool `yaml:"verify_peer"`
}

// TransportConfig holds HTTP transport settings.
type TransportConfig struct {
	ConnTimeout time.Duration   `yaml:"conn_timeout"`
	Timeout     time.Duration   `yaml:"timeout"` // 0 = no overall deadline
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Breaker     BreakerConfig   `yaml:"breaker"`
}

// RateLimitConfig throttles outgoing calls. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// BreakerConfig configures the optional circuit breaker.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// AuditConfig holds call audit settings.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"` // "jsonl" or "sqlite"
	Path    string `yaml:"path"`
	MaxAge  string `yaml:"max_age,omitempty"`  // duration, jsonl retention
	MaxSize string `yaml:"max_size,omitempty"` // e.g. "10MB", jsonl retention
}

// defaultDataDir returns the persistent data directory under $HOME/.sugarcli.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".sugarcli")
}

// DefaultPath is the config file used when neither --config nor
// SUGARCLI_CONFIG is given.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		CRM: CRMConfig{
			VerifyPeer: true,
		},
		Transport: TransportConfig{
			ConnTimeout: 30 * time.Second,
			RateLimit:   RateLimitConfig{Burst: 1},
			Breaker: BreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Audit: AuditConfig{
			Enabled: false,
			Backend: "jsonl",
			Path:    filepath.Join(defaultDataDir(), "audit.jsonl"),
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := validatePermissions(path); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.NewDomainError("config.Load", domain.ErrConfigLoad, fmt.Sprintf("parse %s: %v", path, err))
		}
	case os.IsNotExist(err):
	default:
		return nil, domain.NewDomainError("config.Load", domain.ErrConfigLoad, fmt.Sprintf("read %s: %v", path, err))
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(EnvConfigKey); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps SUGARCLI_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "URL"); v != "" {
		cfg.CRM.URL = v
	}
	if v := os.Getenv(envPrefix + "LOGIN"); v != "" {
		cfg.CRM.Login = v
	}
	if v := os.Getenv(envPrefix + "PASSWORD"); v != "" {
		cfg.CRM.Password = v
	}
	if v := os.Getenv(envPrefix + "VERIFY_PEER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.CRM.VerifyPeer = b
		}
	}
	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Transport.Timeout = d
		}
	}
	if v := os.Getenv(envPrefix + "LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv(envPrefix + "LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv(envPrefix + "TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv(envPrefix + "TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv(envPrefix + "AUDIT_PATH"); v != "" {
		cfg.Audit.Enabled = true
		cfg.Audit.Path = v
	}
}

// decryptSecrets replaces "enc:..." values with their plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	for name, fp := range map[string]*string{
		"crm.password": &cfg.CRM.Password,
		"crm.login":    &cfg.CRM.Login,
	} {
		if !strings.HasPrefix(*fp, secretPrefix) {
			continue
		}
		decrypted, err := DecryptValue(strings.TrimPrefix(*fp, secretPrefix), passphrase)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*fp = decrypted
	}
	return nil
}

// IsEncrypted reports whether v is an "enc:" secret.
func IsEncrypted(v string) bool {
	return strings.HasPrefix(v, secretPrefix)
}

// EncryptSecret returns the "enc:"-prefixed form of plaintext, ready to be
// pasted into the config file.
func EncryptSecret(plaintext, passphrase string) (string, error) {
	enc, err := EncryptValue(plaintext, passphrase)
	if err != nil {
		return "", err
	}
	return secretPrefix + enc, nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	if passphrase == "" {
		return "", domain.NewDomainError("config.EncryptValue", domain.ErrEncryption, "empty passphrase")
	}
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", domain.NewDomainError("config.EncryptValue", domain.ErrEncryption, err.Error())
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", domain.NewDomainError("config.EncryptValue", domain.ErrEncryption, err.Error())
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", domain.NewDomainError("config.EncryptValue", domain.ErrEncryption, err.Error())
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", domain.NewDomainError("config.DecryptValue", domain.ErrDecryption, "invalid encrypted format")
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", domain.NewDomainError("config.DecryptValue", domain.ErrDecryption, "decode salt")
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", domain.NewDomainError("config.DecryptValue", domain.ErrDecryption, "decode ciphertext")
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", domain.NewDomainError("config.DecryptValue", domain.ErrDecryption, err.Error())
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", domain.NewDomainError("config.DecryptValue", domain.ErrDecryption, "ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", domain.NewDomainError("config.DecryptValue", domain.ErrDecryption, "wrong passphrase or corrupted value")
	}

	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others,
// since the file may hold the web-service password.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return domain.NewDomainError("config.Load", domain.ErrConfigLoad, fmt.Sprintf("stat %s: %v", path, err))
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return domain.NewDomainError("config.Load", domain.ErrConfigLoad,
			fmt.Sprintf("%s has insecure permissions %o (want 0600 or 0644)", path, mode))
	}
	return nil
}
