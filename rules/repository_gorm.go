package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/apiguard/apiguard/ratelimit"
	"gorm.io/gorm"
)

// RuleRecord is the GORM model for a persisted rule. Rows are ordered by ID,
// which preserves the insertion order the matcher's tie-break relies on.
type RuleRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	UserScope    string    `gorm:"column:user_scope;size:128;not null"`
	IPScope      string    `gorm:"column:ip_scope;size:64;not null"`
	MaxRequests  int       `gorm:"column:max_requests;not null"`
	Kind         string    `gorm:"column:kind;size:16;not null"`
	BlockSeconds int       `gorm:"column:block_seconds;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

// TableName sets the table name.
func (RuleRecord) TableName() string {
	return "rate_limit_rules"
}

func (r RuleRecord) toRule() ratelimit.Rule {
	return ratelimit.Rule{
		UserScope:    r.UserScope,
		IPScope:      r.IPScope,
		MaxRequests:  r.MaxRequests,
		Kind:         ratelimit.Kind(r.Kind),
		BlockSeconds: r.BlockSeconds,
	}
}

func recordFromRule(rule ratelimit.Rule) RuleRecord {
	return RuleRecord{
		UserScope:    rule.UserScope,
		IPScope:      rule.IPScope,
		MaxRequests:  rule.MaxRequests,
		Kind:         string(rule.Kind),
		BlockSeconds: rule.BlockSeconds,
	}
}

// GormRepository is the database-backed Repository.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository migrates the rules table and returns the repository.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&RuleRecord{}); err != nil {
		return nil, fmt.Errorf("migrate rate_limit_rules: %w", err)
	}
	return &GormRepository{db: db}, nil
}

// FetchAll returns all rules in insertion order.
func (r *GormRepository) FetchAll(ctx context.Context) ([]ratelimit.Rule, error) {
	var records []RuleRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("fetch rules: %w", err)
	}

	rules := make([]ratelimit.Rule, 0, len(records))
	for _, record := range records {
		rules = append(rules, record.toRule())
	}
	return rules, nil
}

// Create appends a validated rule.
func (r *GormRepository) Create(ctx context.Context, rule ratelimit.Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	record := recordFromRule(rule)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// Replace swaps the whole rule set inside one transaction.
func (r *GormRepository) Replace(ctx context.Context, rules []ratelimit.Rule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&RuleRecord{}).Error; err != nil {
			return fmt.Errorf("clear rules: %w", err)
		}
		for _, rule := range rules {
			record := recordFromRule(rule)
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("insert rule: %w", err)
			}
		}
		return nil
	})
}
