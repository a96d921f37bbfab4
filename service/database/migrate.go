/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新监控服务依赖的只读表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 生产环境中采购公告和采集日志表由采集服务维护，此处迁移保持幂等，仅保证开发和测试环境可用
 * @dependencies procurement-monitor/service/models, gorm.io/gorm
 * @refs dev_docs/backend_requirements.md
 */

package database

import (
	"log"

	"procurement-monitor/service/models"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 采购数据只读表
	err := db.AutoMigrate(
		&models.ContractingAuthority{},
		&models.Tender{},
		&models.IngestionJob{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
