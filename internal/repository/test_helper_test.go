package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/ruin-slot/internal/database"
	"github.com/wfunc/ruin-slot/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 每个测试一个独立的共享缓存内存库，表结构走正式迁移
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, nil))

	t.Cleanup(func() { CleanupTestDB(db) })
	return db
}

// CleanupTestDB 关闭数据库连接
func CleanupTestDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// CreateTestRun 创建测试模拟汇总，每个会话投注1000、赔付800
func CreateTestRun(runID, difficulty string, ruined, victories int) *models.SimulationRun {
	return &models.SimulationRun{
		RunID:          runID,
		Difficulty:     difficulty,
		InitialBalance: 100,
		HouseBalance:   10000,
		BetAmount:      10,
		WinTarget:      200,
		Sessions:       ruined + victories,
		Ruined:         ruined,
		Victories:      victories,
		TotalBet:       int64(ruined+victories) * 1000,
		TotalPayout:    int64(ruined+victories) * 800,
		StartedAt:      time.Now(),
	}
}

// CreateTestOutcomes 按结局原因依次生成会话结局
func CreateTestOutcomes(reasons ...string) []*models.SimulationOutcome {
	outcomes := make([]*models.SimulationOutcome, 0, len(reasons))
	for i, reason := range reasons {
		final := 0.0
		if reason == "victory" {
			final = 200
		}
		outcomes = append(outcomes, &models.SimulationOutcome{
			SessionIndex: i,
			Reason:       reason,
			Rounds:       10 * (i + 1),
			FinalBalance: final,
		})
	}
	return outcomes
}

// SeedTestRuns 写入一组不同难度的模拟记录
func SeedTestRuns(t *testing.T, repo SimulationRunRepository, runs ...*models.SimulationRun) {
	t.Helper()
	for _, run := range runs {
		require.NoError(t, repo.Create(context.Background(), run, nil))
	}
}

// AssertSimulationRun 验证模拟汇总
func AssertSimulationRun(t *testing.T, expected, actual *models.SimulationRun) {
	t.Helper()
	assert.Equal(t, expected.RunID, actual.RunID)
	assert.Equal(t, expected.Difficulty, actual.Difficulty)
	assert.Equal(t, expected.Sessions, actual.Sessions)
	assert.Equal(t, expected.Ruined, actual.Ruined)
	assert.Equal(t, expected.Victories, actual.Victories)
	assert.Equal(t, expected.TotalBet, actual.TotalBet)
	assert.Equal(t, expected.TotalPayout, actual.TotalPayout)
}
