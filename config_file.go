package providerAuth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the recognized option names. Pointers distinguish an
// absent key (keep the default) from an explicit zero.
type fileConfig struct {
	MaxLoginAttempts       *int `toml:"maxLoginAttempts"`
	LockoutDurationSeconds *int `toml:"lockoutDurationSeconds"`
	MaxConcurrentSessions  *int `toml:"maxConcurrentSessions"`
	RateLimitWindowSeconds *int `toml:"rateLimitWindowSeconds"`
	RateLimitMaxAttempts   *int `toml:"rateLimitMaxAttempts"`
	AccessTokenTTLSeconds  *int `toml:"accessTokenTtlSeconds"`
	RefreshTokenTTLSeconds *int `toml:"refreshTokenTtlSeconds"`
	RememberMeTTLSeconds   *int `toml:"rememberMeTtlSeconds"`
	StoreTimeoutSeconds    *int `toml:"storeTimeoutSeconds"`

	Tokens struct {
		SigningMethod *string `toml:"signingMethod"`
		SigningKey    *string `toml:"signingKey"`
		PublicKey     *string `toml:"publicKey"`
		HashKey       *string `toml:"hashKey"`
		Issuer        *string `toml:"issuer"`
		Audience      *string `toml:"audience"`
		RedisPrefix   *string `toml:"redisPrefix"`
	} `toml:"tokens"`

	Registration struct {
		Enabled       *bool   `toml:"enabled"`
		WindowSeconds *int    `toml:"windowSeconds"`
		MaxRequests   *int    `toml:"maxRequests"`
		FailOpen      *bool   `toml:"failOpen"`
		RedisPrefix   *string `toml:"redisPrefix"`
	} `toml:"registration"`

	Audit struct {
		Enabled    *bool `toml:"enabled"`
		BufferSize *int  `toml:"bufferSize"`
		DropIfFull *bool `toml:"dropIfFull"`
	} `toml:"audit"`

	Metrics struct {
		Enabled *bool `toml:"enabled"`
	} `toml:"metrics"`

	ValidationMode *string `toml:"validationMode"`
}

// LoadConfigFile reads a TOML file on top of [DefaultConfig] and validates
// the result.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return DecodeConfig(f)
}

// DecodeConfig reads TOML from r on top of [DefaultConfig] and validates the
// result. Unknown keys are rejected.
func DecodeConfig(r io.Reader) (Config, error) {
	var fc fileConfig
	md, err := toml.NewDecoder(r).Decode(&fc)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("decode config: unknown keys: %s", strings.Join(keys, ", "))
	}

	cfg := defaultConfig()
	if err := fc.apply(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	setInt(&cfg.Login.MaxLoginAttempts, fc.MaxLoginAttempts)
	setSeconds(&cfg.Login.LockoutDuration, fc.LockoutDurationSeconds)
	setInt(&cfg.Login.MaxConcurrentSessions, fc.MaxConcurrentSessions)
	setSeconds(&cfg.RateLimit.Window, fc.RateLimitWindowSeconds)
	setInt(&cfg.RateLimit.MaxAttempts, fc.RateLimitMaxAttempts)
	setSeconds(&cfg.Tokens.AccessTTL, fc.AccessTokenTTLSeconds)
	setSeconds(&cfg.Tokens.RefreshTTL, fc.RefreshTokenTTLSeconds)
	setSeconds(&cfg.Tokens.RememberMeTTL, fc.RememberMeTTLSeconds)
	setSeconds(&cfg.StoreTimeout, fc.StoreTimeoutSeconds)

	if fc.Tokens.SigningMethod != nil {
		cfg.Tokens.SigningMethod = strings.ToLower(strings.TrimSpace(*fc.Tokens.SigningMethod))
	}
	setBytes(&cfg.Tokens.PrivateKey, fc.Tokens.SigningKey)
	setBytes(&cfg.Tokens.PublicKey, fc.Tokens.PublicKey)
	setBytes(&cfg.Tokens.HashKey, fc.Tokens.HashKey)
	setString(&cfg.Tokens.Issuer, fc.Tokens.Issuer)
	setString(&cfg.Tokens.Audience, fc.Tokens.Audience)
	setString(&cfg.Tokens.RedisPrefix, fc.Tokens.RedisPrefix)

	setBool(&cfg.Registration.Enabled, fc.Registration.Enabled)
	setSeconds(&cfg.Registration.Window, fc.Registration.WindowSeconds)
	setInt(&cfg.Registration.MaxRequests, fc.Registration.MaxRequests)
	setBool(&cfg.Registration.FailOpen, fc.Registration.FailOpen)
	setString(&cfg.Registration.RedisPrefix, fc.Registration.RedisPrefix)

	setBool(&cfg.Audit.Enabled, fc.Audit.Enabled)
	setInt(&cfg.Audit.BufferSize, fc.Audit.BufferSize)
	setBool(&cfg.Audit.DropIfFull, fc.Audit.DropIfFull)
	setBool(&cfg.Metrics.Enabled, fc.Metrics.Enabled)

	if fc.ValidationMode != nil {
		switch strings.ToLower(strings.TrimSpace(*fc.ValidationMode)) {
		case "jwt_only", "jwt-only", "jwtonly":
			cfg.ValidationMode = ModeJWTOnly
		case "strict":
			cfg.ValidationMode = ModeStrict
		default:
			return errors.New("validationMode must be \"jwt_only\" or \"strict\"")
		}
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBytes(dst *[]byte, v *string) {
	if v != nil {
		*dst = []byte(*v)
	}
}
