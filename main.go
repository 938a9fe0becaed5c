package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaobi639-netizen/okx-monitor/internal/repo"
	"github.com/gaobi639-netizen/okx-monitor/internal/service/monitor"
	"github.com/gaobi639-netizen/okx-monitor/internal/service/notification"
	"github.com/gaobi639-netizen/okx-monitor/ioc"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}

}

func initMonitorConfig() monitor.Config {
	type Config struct {
		IntervalSeconds  int     `mapstructure:"interval_seconds"`
		SizeEpsilon      float64 `mapstructure:"size_epsilon"`
		FailureThreshold int     `mapstructure:"failure_threshold"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("monitor", &cfg); err != nil {
		panic(err)
	}

	mc := monitor.Config{
		Interval:         time.Duration(cfg.IntervalSeconds) * time.Second,
		FailureThreshold: cfg.FailureThreshold,
	}
	if cfg.SizeEpsilon > 0 {
		mc.Epsilon = decimal.NewFromFloat(cfg.SizeEpsilon)
	}
	return mc
}

func main() {
	initViper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	traderRepo := repo.NewTraderRepo(db)

	okxSvc := ioc.InitOKXCli()
	telegramSvc := ioc.InitTelegram()

	// 凭证配置了就先探测一遍, 凭证问题在启动时暴露而不是首个轮询周期
	if viper.GetString("okx.api_key") != "" {
		if err := okxSvc.TestConnection(ctx); err != nil {
			panic(fmt.Errorf("okx credential check failed: %w", err))
		}
		slog.Info("okx credential check passed")
	}

	mon := monitor.NewMonitor(initMonitorConfig(), okxSvc, traderRepo,
		monitor.WithNotifier(telegramSvc))

	// 配置里预置的交易员补进注册表, 已存在的忽略
	// viper 会把 map 的 key 统一转小写, uniqueCode 大小写敏感, 所以用列表而不是 map
	var seed []struct {
		Code string `mapstructure:"code"`
		Name string `mapstructure:"name"`
	}
	if err := viper.UnmarshalKey("monitor.traders", &seed); err != nil {
		panic(err)
	}
	for _, t := range seed {
		resolved, err := okxSvc.ResolveUniqueCode(ctx, t.Code)
		if err != nil {
			slog.Error("skip invalid trader in config", "input", t.Code, "error", err)
			continue
		}
		if err = mon.AddTrader(ctx, monitor.TraderCode(resolved), t.Name); err != nil {
			slog.Warn("trader not added", "trader", resolved, "error", err)
		}
	}

	if err := mon.Start(ctx); err != nil {
		panic(err)
	}

	statuses := mon.Health()
	names := lo.Map(statuses, func(s monitor.TraderStatus, _ int) string {
		return s.NickName
	})
	interval := time.Duration(viper.GetInt("monitor.interval_seconds")) * time.Second
	if err := telegramSvc.SendText(ctx, notification.FormatStartup(names, interval)); err != nil {
		slog.Error("failed to send startup notice", "error", err)
	}
	slog.Info("monitoring", "traders", names)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	mon.Stop()
	if err := telegramSvc.SendText(context.Background(), notification.FormatShutdown()); err != nil {
		slog.Error("failed to send shutdown notice", "error", err)
	}
}
