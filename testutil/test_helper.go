/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"procurement-monitor/service/models"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.ContractingAuthority{},
		&models.Tender{},
		&models.IngestionJob{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"tenders",
		"data_ingestion_logs",
		"contracting_authorities",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if sqlDB, err := tdb.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// CreateAuthority 创建测试采购机构
func (tdb *TestDB) CreateAuthority(name, cui, email string) *models.ContractingAuthority {
	authority := &models.ContractingAuthority{
		Name:         name,
		CUI:          cui,
		ContactEmail: email,
	}
	if err := tdb.DB.Create(authority).Error; err != nil {
		panic(fmt.Sprintf("failed to create test authority: %v", err))
	}
	return authority
}

// TenderOption 测试公告构造选项
type TenderOption func(*models.Tender)

// WithAuthority 指定公告的采购机构
func WithAuthority(authorityID int) TenderOption {
	return func(t *models.Tender) {
		t.ContractingAuthorityID = &authorityID
	}
}

// WithStatus 指定公告状态
func WithStatus(status string) TenderOption {
	return func(t *models.Tender) {
		t.Status = status
	}
}

// WithDeadline 指定投标截止日期
func WithDeadline(deadline time.Time) TenderOption {
	return func(t *models.Tender) {
		t.SubmissionDeadline = &deadline
	}
}

// WithValue 指定预估金额
func WithValue(value float64) TenderOption {
	return func(t *models.Tender) {
		t.EstimatedValue = &value
	}
}

// WithScrapedAt 指定最近抓取时间
func WithScrapedAt(scrapedAt time.Time) TenderOption {
	return func(t *models.Tender) {
		t.LastScrapedAt = &scrapedAt
	}
}

// WithoutScrapedAt 置空最近抓取时间
func WithoutScrapedAt() TenderOption {
	return func(t *models.Tender) {
		t.LastScrapedAt = nil
	}
}

// CreateTender 创建测试采购公告，默认字段齐全
func (tdb *TestDB) CreateTender(source, externalID, title string, opts ...TenderOption) *models.Tender {
	now := time.Now()
	pubDate := now.AddDate(0, 0, -7)
	deadline := now.AddDate(0, 0, 7)
	value := 100000.0

	tender := &models.Tender{
		SourceSystem:       source,
		ExternalID:         externalID,
		Title:              title,
		Description:        "Descriere achizitie publica",
		EstimatedValue:     &value,
		PublicationDate:    &pubDate,
		SubmissionDeadline: &deadline,
		Status:             "active",
		LastScrapedAt:      &now,
	}
	for _, opt := range opts {
		opt(tender)
	}

	if err := tdb.DB.Create(tender).Error; err != nil {
		panic(fmt.Sprintf("failed to create test tender: %v", err))
	}
	return tender
}

// CreateJob 创建测试采集任务日志
func (tdb *TestDB) CreateJob(source, status string, startedAt time.Time, duration time.Duration) *models.IngestionJob {
	job := &models.IngestionJob{
		SourceSystem: source,
		JobType:      "incremental",
		StartedAt:    startedAt,
		Status:       status,
	}
	if status != models.JobStatusRunning {
		completedAt := startedAt.Add(duration)
		job.CompletedAt = &completedAt
	}

	if err := tdb.DB.Create(job).Error; err != nil {
		panic(fmt.Sprintf("failed to create test job: %v", err))
	}
	return job
}
