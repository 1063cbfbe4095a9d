package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/getpaseo/paseo/internal/api/http"
	"github.com/getpaseo/paseo/internal/tokens"
)

type Config struct {
	Log       LogConfig
	Http      http.Config
	Data      DataConfig      `mapstructure:"data"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type RelayConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type DownloadsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

var config Config

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".paseo"
	}
	return filepath.Join(home, ".paseo")
}

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("paseod")
	viper.AddConfigPath(".")
	viper.AddConfigPath(defaultDataDir())
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log.level", "INFO")
	viper.SetDefault("http.port", 8787)
	viper.SetDefault("data.dir", defaultDataDir())
	viper.SetDefault("relay.endpoint", "relay.getpaseo.dev:443")
	viper.SetDefault("downloads.ttl", tokens.DefaultDownloadTTL)

	if err := viper.ReadInConfig(); err != nil {
		// Defaults and environment cover a config-less install.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)

	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}
