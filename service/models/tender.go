/*
 * @module service/models/tender
 * @description 采购公告相关模型定义，包括采购公告和采购机构实体，只读映射采集服务维护的表结构
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 采购公告由采集服务写入，本服务只读取用于质量评估
 * @rules 表结构与采集服务保持一致，本服务不修改业务数据
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/quality, service/monitoring
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContractingAuthority 采购机构模型
type ContractingAuthority struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string    `json:"name" gorm:"not null;size:255"`
	CUI           string    `json:"cui" gorm:"column:cui;size:20;uniqueIndex"` // 罗马尼亚财税识别码
	Address       string    `json:"address" gorm:"type:text"`
	County        string    `json:"county" gorm:"size:50"`
	City          string    `json:"city" gorm:"size:100"`
	ContactEmail  string    `json:"contact_email" gorm:"size:255"`
	ContactPhone  string    `json:"contact_phone" gorm:"size:20"`
	Website       string    `json:"website" gorm:"size:255"`
	AuthorityType string    `json:"authority_type" gorm:"size:50"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `json:"updated_at"`

	// 关联关系
	Tenders []Tender `json:"tenders,omitempty" gorm:"foreignKey:ContractingAuthorityID"`
}

// TableName 指定表名
func (ContractingAuthority) TableName() string {
	return "contracting_authorities"
}

// Tender 采购公告模型
type Tender struct {
	ID                     string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SourceSystem           string  `json:"source_system" gorm:"not null;size:50;index"` // SICAP, ANRMAP
	ExternalID             string  `json:"external_id" gorm:"not null;size:255;index"`
	Title                  string  `json:"title" gorm:"type:text"`
	Description            string  `json:"description" gorm:"type:text"`
	ContractingAuthorityID *int    `json:"contracting_authority_id" gorm:"index"`
	CPVCode                string  `json:"cpv_code" gorm:"size:10"`
	TenderType             string  `json:"tender_type" gorm:"size:50"`
	ProcedureType          string  `json:"procedure_type" gorm:"size:50"`
	EstimatedValue         *float64 `json:"estimated_value"`
	Currency               string  `json:"currency" gorm:"size:3;default:'RON'"`

	// 关键日期
	PublicationDate    *time.Time `json:"publication_date"`
	SubmissionDeadline *time.Time `json:"submission_deadline"`
	OpeningDate        *time.Time `json:"opening_date"`

	// 状态
	Status string `json:"status" gorm:"size:50"` // active, closed, cancelled, awarded

	// 原始数据
	RawData JSONB `json:"raw_data,omitempty" gorm:"type:jsonb"`

	// 元数据
	CreatedAt     time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastScrapedAt *time.Time `json:"last_scraped_at" gorm:"index"`

	// 关联关系
	ContractingAuthority *ContractingAuthority `json:"contracting_authority,omitempty" gorm:"foreignKey:ContractingAuthorityID"`
}

// TableName 指定表名
func (Tender) TableName() string {
	return "tenders"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (t *Tender) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
