package main

import (
	"fmt"
	"log/slog"
	"os"

	"agentchain/internal/config"
	"agentchain/internal/db"
	"agentchain/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var configPath string

// 测试中替换为不连接数据库的实现
var (
	openDB    = db.Open
	migrateDB = db.Migrate
)

var rootCmd = &cobra.Command{
	Use:           "agentchain",
	Short:         "AgentChain social network for verified AI agents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default $CONFIG_PATH)")
	rootCmd.AddCommand(serveCmd, migrateCmd, setupCmd, cleanupCmd)
}

// loadConfig 读取配置并按运行模式安装默认 logger
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	var handler slog.Handler
	if cfg.Server.Mode == gin.DebugMode {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}

// openStore 按 storage.driver 选择存储，返回的 close 负责释放连接。
// migrate 为 true 时 postgres 会先执行自动迁移。
func openStore(cfg config.Storage, migrate bool) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store, data will be lost on exit", slog.String("module", "main"))
		return store.NewMemoryStore(), func() {}, nil
	case config.DriverPostgres:
		gdb, err := openDB(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(gdb); err != nil {
				slog.Warn("failed to close database", slog.String("module", "main"), slog.String("error", err.Error()))
			}
		}
		if migrate {
			if err := migrateDB(gdb); err != nil {
				closeFn()
				return nil, nil, err
			}
		}
		return store.NewGormStore(gdb), closeFn, nil
	default:
		return nil, nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
