package shared

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	MetricsAddr   string
	MySQLDSN      string
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	GatewayBase   string
	GatewayKey    string
	GatewayRPS    int
	Currency      string
	Culture       string
	Domestic      string
	CommitRetries int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/voyago?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisDB:       atoi("REDIS_DB", 0),
		RedisPass:     env("REDIS_PASSWORD", ""),
		GatewayBase:   env("GATEWAY_BASE_URL", "https://api.sanbooking.example/v1"),
		GatewayKey:    env("GATEWAY_API_KEY", ""),
		GatewayRPS:    atoi("GATEWAY_RPS", 5),
		Currency:      env("HOLD_CURRENCY", "EUR"),
		Culture:       env("HOLD_CULTURE", "en-US"),
		Domestic:      env("DOMESTIC_NATIONALITY", "TR"),
		CommitRetries: atoi("COMMIT_RETRIES", 3),
	}
	if c.GatewayKey == "" {
		log.Warn().Msg("GATEWAY_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
