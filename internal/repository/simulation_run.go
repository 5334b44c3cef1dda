package repository

import (
	"context"
	stderrors "errors"

	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/models"
	"gorm.io/gorm"
)

// outcomeBatchSize 单个会话结局批量插入的大小
const outcomeBatchSize = 500

// SimulationRunRepository 模拟归档仓储接口
type SimulationRunRepository interface {
	BaseRepository
	Create(ctx context.Context, run *models.SimulationRun, outcomes []*models.SimulationOutcome) error
	FindByRunID(ctx context.Context, runID string) (*models.SimulationRun, error)
	FindRecent(ctx context.Context, p *Pagination) ([]*models.SimulationRun, error)
	FindByDifficulty(ctx context.Context, difficulty string, p *Pagination) ([]*models.SimulationRun, error)
	FindOutcomes(ctx context.Context, runID string) ([]*models.SimulationOutcome, error)
	GetDifficultySummary(ctx context.Context) ([]*DifficultySummary, error)
}

// DifficultySummary 按难度汇总的历史结果
type DifficultySummary struct {
	Difficulty  string  `json:"difficulty"`
	Runs        int64   `json:"runs"`
	Sessions    int64   `json:"sessions"`
	Ruined      int64   `json:"ruined"`
	Victories   int64   `json:"victories"`
	TotalBet    int64   `json:"total_bet"`
	TotalPayout int64   `json:"total_payout"`
	RuinRate    float64 `json:"ruin_rate"`
	ObservedRTP float64 `json:"observed_rtp"`
}

// simulationRunRepo 模拟归档仓储实现
type simulationRunRepo struct {
	*BaseRepo
}

// NewSimulationRunRepository 创建模拟归档仓储
func NewSimulationRunRepository(db *gorm.DB) SimulationRunRepository {
	return &simulationRunRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 在一个事务里写入汇总和每个会话的结局
func (r *simulationRunRepo) Create(ctx context.Context, run *models.SimulationRun, outcomes []*models.SimulationOutcome) error {
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit("Outcomes").Create(run).Error; err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "写入模拟汇总失败")
		}
		if len(outcomes) == 0 {
			return nil
		}
		for _, o := range outcomes {
			o.RunID = run.RunID
		}
		if err := tx.CreateInBatches(outcomes, outcomeBatchSize).Error; err != nil {
			return errors.Wrap(err, errors.ErrDatabaseInsert, "写入会话结局失败")
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrTransaction)
	}
	return nil
}

// FindByRunID 根据运行ID查找
func (r *simulationRunRepo) FindByRunID(ctx context.Context, runID string) (*models.SimulationRun, error) {
	var run models.SimulationRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Newf(errors.ErrNotFound, "模拟记录不存在: %s", runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return &run, nil
}

// FindRecent 最近的模拟，新的在前
func (r *simulationRunRepo) FindRecent(ctx context.Context, p *Pagination) ([]*models.SimulationRun, error) {
	return r.find(r.db.WithContext(ctx).Model(&models.SimulationRun{}), p)
}

// FindByDifficulty 按难度查找
func (r *simulationRunRepo) FindByDifficulty(ctx context.Context, difficulty string, p *Pagination) ([]*models.SimulationRun, error) {
	query := r.db.WithContext(ctx).Model(&models.SimulationRun{}).Where("difficulty = ?", difficulty)
	return r.find(query, p)
}

func (r *simulationRunRepo) find(query *gorm.DB, p *Pagination) ([]*models.SimulationRun, error) {
	if p == nil {
		p = NewPagination(1, 10)
	}

	// 查询总数
	if err := query.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	var runs []*models.SimulationRun
	err := query.
		Order("created_at desc").
		Order("id desc").
		Scopes(Paginate(p)).
		Find(&runs).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return runs, nil
}

// FindOutcomes 某次模拟的全部会话结局
func (r *simulationRunRepo) FindOutcomes(ctx context.Context, runID string) ([]*models.SimulationOutcome, error) {
	var outcomes []*models.SimulationOutcome
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("session_index asc").
		Find(&outcomes).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}
	return outcomes, nil
}

// GetDifficultySummary 按难度汇总全部历史
func (r *simulationRunRepo) GetDifficultySummary(ctx context.Context) ([]*DifficultySummary, error) {
	var rows []*DifficultySummary
	err := r.db.WithContext(ctx).
		Model(&models.SimulationRun{}).
		Select(`difficulty,
			COUNT(*) as runs,
			COALESCE(SUM(sessions), 0) as sessions,
			COALESCE(SUM(ruined), 0) as ruined,
			COALESCE(SUM(victories), 0) as victories,
			COALESCE(SUM(total_bet), 0) as total_bet,
			COALESCE(SUM(total_payout), 0) as total_payout`).
		Group("difficulty").
		Order("difficulty").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabaseQuery)
	}

	for _, row := range rows {
		if row.Sessions > 0 {
			row.RuinRate = float64(row.Ruined) / float64(row.Sessions)
		}
		if row.TotalBet > 0 {
			row.ObservedRTP = float64(row.TotalPayout) / float64(row.TotalBet)
		}
	}
	return rows, nil
}
