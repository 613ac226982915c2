package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"volunteer-hub/config"
	"volunteer-hub/pkg/database"
	applogger "volunteer-hub/pkg/logger"
)

// 数据库迁移运维命令
//
//	migrate up
//	migrate down --steps 1
var (
	cfgFile string
	steps   int
)

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "volunteer-hub 数据库迁移工具",
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "应用所有未执行的迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB, logger *zap.Logger) error {
			return database.RunMigrations(db, logger)
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "回退指定步数的迁移",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB, logger *zap.Logger) error {
			return database.RollbackMigrations(db, steps, logger)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	downCmd.Flags().IntVar(&steps, "steps", 1, "回退步数")
	rootCmd.AddCommand(upCmd, downCmd)
}

func withDB(fn func(db *sql.DB, logger *zap.Logger) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	return fn(sqlDB, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
