package repository

import (
	"syncd/internal/db"
	"syncd/internal/model"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	conn *gorm.DB
}

// NewHistoryRepository uses the process-wide connection from db.Init.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

// NewHistoryRepositoryWith uses conn instead of the process-wide one.
func NewHistoryRepositoryWith(conn *gorm.DB) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

func (r *HistoryRepository) gormDB() *gorm.DB {
	if r.conn != nil {
		return r.conn
	}
	return db.DB
}

func (r *HistoryRepository) Save(entry *model.History) error {
	return r.gormDB().Create(entry).Error
}

type Stats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

// GetStats counts recorded reports. Partial results count as successes.
func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := r.gormDB().Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := r.gormDB().Model(&model.History{}).
		Where("status IN ?", []string{"SUCCESS", "PARTIAL"}).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := r.gormDB().
		Order("finished_at desc").
		Order("id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetBySrc(src string, limit int) ([]model.History, error) {
	var histories []model.History
	result := r.gormDB().
		Where("src = ?", src).
		Order("finished_at desc").
		Order("id desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}
