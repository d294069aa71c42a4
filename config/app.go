package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	appOnce   sync.Once
	appConfig *AppConfig
)

// AppConfig carries process-level settings. Values come from an optional
// config.yaml at the project root; env vars and defaults fill the gaps.
type AppConfig struct {
	ServerAddr  string `yaml:"serverAddr"`
	StorageType string `yaml:"storageType"` // "minio" or "s3"
	LogLevel    string `yaml:"logLevel"`
	Worker      struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"worker"`
}

func GetAppConfig() *AppConfig {
	appOnce.Do(func() {
		loadEnv()

		appConfig = &AppConfig{
			ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
			StorageType: getEnv("STORAGE_TYPE", "minio"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		}
		appConfig.Worker.Concurrency = 10

		_, filename, _, _ := runtime.Caller(0)
		rootDir := filepath.Dir(filepath.Dir(filename))
		data, err := os.ReadFile(filepath.Join(rootDir, "config.yaml"))
		if err != nil {
			return
		}
		// config.yaml overrides when present; a broken file is ignored
		_ = yaml.Unmarshal(data, appConfig)
	})
	return appConfig
}
