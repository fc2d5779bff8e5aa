package db

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"agentchain/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 连接 postgres，返回由调用方管理生命周期的 *gorm.DB
func Open(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}

	slog.Info("database connection established", slog.String("module", "db"))
	return db, nil
}

// Migrate 自动迁移所有表
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Agent{},
		&models.Channel{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.Notification{},
		&models.KarmaLog{},
	)
	if err != nil {
		return errors.Wrap(err, "migrate database")
	}
	slog.Info("database migration completed", slog.String("module", "db"))
	return nil
}

// Ping 检查连接是否可用
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "get sql.DB")
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
