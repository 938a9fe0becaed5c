package ioc

import (
	"github.com/gaobi639-netizen/okx-monitor/internal/service/copytrading/okx"
	"github.com/spf13/viper"
)

func InitOKXCli() *okx.Service {
	type Config struct {
		ApiKey            string  `mapstructure:"api_key"`
		SecretKey         string  `mapstructure:"secret_key"`
		Passphrase        string  `mapstructure:"passphrase"`
		BaseUrl           string  `mapstructure:"base_url"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Burst             int     `mapstructure:"burst"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("okx", &cfg); err != nil {
		panic(err)
	}

	return okx.NewService(okx.Config{
		ApiKey:            cfg.ApiKey,
		SecretKey:         cfg.SecretKey,
		Passphrase:        cfg.Passphrase,
		BaseURL:           cfg.BaseUrl,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	})
}
