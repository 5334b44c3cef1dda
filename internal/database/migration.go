package database

import (
	"fmt"

	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrationModels 需要迁移的模型
var migrationModels = []interface{}{
	&models.SimulationRun{},
	&models.SimulationOutcome{},
}

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB, log *zap.Logger) error {
	if db == nil {
		return errors.New(errors.ErrDatabaseConnect, "数据库未初始化")
	}
	if log == nil {
		log = zap.NewNop()
	}

	// 多个 ruin-sim 同时写同一个 SQLite 文件时串行迁移
	if path := dbPath(db); path != "" {
		CleanupStaleLocks(path, log)
		lockFile, err := acquireMigrationLock(path, log)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "获取迁移锁失败")
		}
		defer releaseMigrationLock(lockFile, log)
	}

	log.Info("开始数据库迁移...")
	for _, model := range migrationModels {
		if err := db.AutoMigrate(model); err != nil {
			log.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return errors.Wrapf(err, errors.ErrDatabaseQuery, "迁移 %T 失败", model)
		}
		log.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	createIndexes(db, log)

	log.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建组合索引，失败只记录日志
func createIndexes(db *gorm.DB, log *zap.Logger) {
	indexes := map[string]string{
		"idx_simulation_runs_difficulty_created": "CREATE INDEX IF NOT EXISTS idx_simulation_runs_difficulty_created ON simulation_runs(difficulty, created_at)",
		"idx_simulation_outcomes_run_reason":     "CREATE INDEX IF NOT EXISTS idx_simulation_outcomes_run_reason ON simulation_outcomes(run_id, reason)",
	}
	for name, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			log.Warn("创建索引失败", zap.String("index", name), zap.Error(err))
		}
	}
}

// DropAllTables 删除归档表
func DropAllTables(db *gorm.DB) error {
	if db == nil {
		return errors.New(errors.ErrDatabaseConnect, "数据库未初始化")
	}
	for i := len(migrationModels) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(migrationModels[i]); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseQuery, "删除表失败")
		}
	}
	return nil
}
