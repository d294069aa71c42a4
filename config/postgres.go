package config

import (
	"sync"
)

var (
	postgresOnce   sync.Once
	postgresConfig *PostgresConfig
)

type PostgresConfig struct {
	DSN string
}

func GetPostgresConfig() *PostgresConfig {
	postgresOnce.Do(func() {
		loadEnv()

		postgresConfig = &PostgresConfig{
			DSN: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=specimens port=5432 sslmode=disable"),
		}
	})
	return postgresConfig
}
