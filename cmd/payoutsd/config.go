package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-payouts/providers/corridor"
	"github.com/goliatone/go-payouts/providers/rampa"
	"github.com/goliatone/go-payouts/security"
	"github.com/joho/godotenv"
)

const envPrefix = "PAYOUTS_"

// daemonConfig holds process wiring that sits outside core.Config.
type daemonConfig struct {
	ListenAddr      string
	DBDriver        string
	DSN             string
	Debug           bool
	AMQPURL         string
	AMQPExchange    string
	ShutdownTimeout time.Duration
	HealthSweep     string
	Rampa           *rampa.Config
	Corridor        *corridor.Config
}

type lookupFunc func(key string) (string, bool)

// withEnvFile layers values read from a dotenv file under the process
// environment. A missing default file is ignored.
func withEnvFile(base lookupFunc, path string, required bool) (lookupFunc, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return base, nil
		}
		return nil, fmt.Errorf("payoutsd: read env file %s: %w", path, err)
	}
	return func(key string) (string, bool) {
		if base != nil {
			if value, ok := base(key); ok {
				return value, true
			}
		}
		value, ok := values[key]
		return value, ok
	}, nil
}

func loadDaemonConfig(lookup lookupFunc) (daemonConfig, error) {
	cfg := daemonConfig{
		ListenAddr:      envString(lookup, "HTTP_ADDR", ":8080"),
		DBDriver:        strings.ToLower(envString(lookup, "DB_DRIVER", "sqlite3")),
		DSN:             envString(lookup, "DB_DSN", "file:payouts.db?cache=shared&_foreign_keys=on"),
		AMQPURL:         envString(lookup, "AMQP_URL", ""),
		AMQPExchange:    envString(lookup, "AMQP_EXCHANGE", ""),
		ShutdownTimeout: 15 * time.Second,
		HealthSweep:     envString(lookup, "HEALTH_SWEEP", defaultHealthSweep),
	}
	if strings.EqualFold(cfg.HealthSweep, "off") {
		cfg.HealthSweep = ""
	}
	var err error
	if cfg.Debug, err = envBool(lookup, "DB_DEBUG"); err != nil {
		return daemonConfig{}, err
	}
	if raw, ok := lookupEnv(lookup, "SHUTDOWN_TIMEOUT"); ok {
		if cfg.ShutdownTimeout, err = time.ParseDuration(raw); err != nil {
			return daemonConfig{}, fmt.Errorf("payoutsd: %sSHUTDOWN_TIMEOUT: %w", envPrefix, err)
		}
	}
	switch cfg.DBDriver {
	case "sqlite3", "postgres":
	default:
		return daemonConfig{}, fmt.Errorf("payoutsd: unsupported %sDB_DRIVER %q", envPrefix, cfg.DBDriver)
	}

	if clientID, ok := lookupEnv(lookup, "RAMPA_CLIENT_ID"); ok {
		cfg.Rampa = &rampa.Config{
			BaseURL:       envString(lookup, "RAMPA_BASE_URL", ""),
			TokenURL:      envString(lookup, "RAMPA_TOKEN_URL", ""),
			ClientID:      clientID,
			ClientSecret:  envString(lookup, "RAMPA_CLIENT_SECRET", ""),
			WebhookSecret: envString(lookup, "RAMPA_WEBHOOK_SECRET", ""),
			Environment:   envString(lookup, "RAMPA_ENVIRONMENT", ""),
		}
	}
	if apiKey, ok := lookupEnv(lookup, "CORRIDOR_API_KEY"); ok {
		cfg.Corridor = &corridor.Config{
			BaseURL:       envString(lookup, "CORRIDOR_BASE_URL", ""),
			APIKey:        apiKey,
			WebhookSecret: envString(lookup, "CORRIDOR_WEBHOOK_SECRET", ""),
			Environment:   envString(lookup, "CORRIDOR_ENVIRONMENT", ""),
		}
	}
	if err := revealCredentials(&cfg, lookup); err != nil {
		return daemonConfig{}, err
	}
	return cfg, nil
}

// newSealer builds the credential sealer from PAYOUTS_SECRET_KEY. It returns
// nil when no key is configured.
func newSealer(lookup lookupFunc) (*security.CredentialSealer, error) {
	key, ok := lookupEnv(lookup, "SECRET_KEY")
	if !ok {
		return nil, nil
	}
	return security.NewCredentialSealer([]byte(key), security.WithKeyID(envString(lookup, "SECRET_KEY_ID", "app-key")))
}

// revealCredentials opens sealed provider credentials in place.
func revealCredentials(cfg *daemonConfig, lookup lookupFunc) error {
	var fields []*string
	if cfg.Rampa != nil {
		fields = append(fields, &cfg.Rampa.ClientSecret, &cfg.Rampa.WebhookSecret)
	}
	if cfg.Corridor != nil {
		fields = append(fields, &cfg.Corridor.APIKey, &cfg.Corridor.WebhookSecret)
	}
	var sealer *security.CredentialSealer
	for _, field := range fields {
		if !security.IsSealed(*field) {
			continue
		}
		if sealer == nil {
			var err error
			if sealer, err = newSealer(lookup); err != nil {
				return fmt.Errorf("payoutsd: %w", err)
			}
			if sealer == nil {
				return fmt.Errorf("payoutsd: sealed credential found but %sSECRET_KEY is not set", envPrefix)
			}
		}
		opened, err := sealer.Open(*field)
		if err != nil {
			return fmt.Errorf("payoutsd: open sealed credential: %w", err)
		}
		*field = opened
	}
	return nil
}

// envConfigLoader maps PAYOUTS_<SECTION>_<KEY> variables onto the nested
// raw map consumed by core.CfgxConfigProvider.
type envConfigLoader struct {
	lookup lookupFunc
}

var serviceConfigKeys = []struct {
	env     string
	path    []string
	convert func(string) (any, error)
}{
	{env: "SERVICE_NAME", path: []string{"service_name"}, convert: asString},
	{env: "ROUTING_DEFAULT_PROVIDER", path: []string{"routing", "default_provider"}, convert: asString},
	{env: "ROUTING_ENABLE_FAILOVER", path: []string{"routing", "enable_failover"}, convert: asBool},
	{env: "ROUTING_PROVIDER_PRIORITY", path: []string{"routing", "provider_priority"}, convert: asList},
	{env: "HEALTH_PROBE_TIMEOUT", path: []string{"health", "probe_timeout"}, convert: asDuration},
	{env: "HEALTH_CACHE_TTL", path: []string{"health", "cache_ttl"}, convert: asDuration},
	{env: "QUOTES_FANOUT_TIMEOUT", path: []string{"quotes", "fanout_timeout"}, convert: asDuration},
	{env: "WEBHOOKS_ALLOW_UNSIGNED", path: []string{"webhooks", "allow_unsigned"}, convert: asBool},
	{env: "STORES_UPDATE_RETRIES", path: []string{"stores", "update_retries"}, convert: asInt},
}

func (l envConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := map[string]any{}
	for _, key := range serviceConfigKeys {
		raw, ok := lookupEnv(l.lookup, key.env)
		if !ok {
			continue
		}
		value, err := key.convert(raw)
		if err != nil {
			return nil, fmt.Errorf("payoutsd: %s%s: %w", envPrefix, key.env, err)
		}
		setPath(out, key.path, value)
	}
	return out, nil
}

func setPath(root map[string]any, path []string, value any) {
	current := root
	for _, segment := range path[:len(path)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

func lookupEnv(lookup lookupFunc, key string) (string, bool) {
	if lookup == nil {
		return "", false
	}
	value, ok := lookup(envPrefix + key)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func envString(lookup lookupFunc, key string, fallback string) string {
	if value, ok := lookupEnv(lookup, key); ok {
		return value
	}
	return fallback
}

func envBool(lookup lookupFunc, key string) (bool, error) {
	raw, ok := lookupEnv(lookup, key)
	if !ok {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("payoutsd: %s%s: %w", envPrefix, key, err)
	}
	return value, nil
}

func asString(raw string) (any, error) { return raw, nil }

func asBool(raw string) (any, error) { return strconv.ParseBool(raw) }

func asInt(raw string) (any, error) { return strconv.Atoi(raw) }

func asDuration(raw string) (any, error) { return time.ParseDuration(raw) }

func asList(raw string) (any, error) {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
