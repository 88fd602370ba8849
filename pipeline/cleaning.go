package pipeline

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"flightprice/ml"
)

// RecordRule 记录校验规则
type RecordRule interface {
	Check(ml.FlightRecord) error
	Name() string
}

// ValidationStats 校验统计
type ValidationStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
	LastValidate   time.Time        `json:"last_validate"`
}

// RecordValidator 训练数据校验器
type RecordValidator struct {
	rules []RecordRule

	stats     ValidationStats
	statsLock sync.RWMutex
}

// NewRecordValidator 创建校验器并注册默认规则
func NewRecordValidator() *RecordValidator {
	validator := &RecordValidator{
		rules: make([]RecordRule, 0),
		stats: ValidationStats{
			Issues: make(map[string]int64),
		},
	}

	// 添加默认规则
	validator.AddRule(NewRequiredFieldsRule())
	validator.AddRule(NewPriceRangeRule())
	validator.AddRule(NewStopsRule())
	validator.AddRule(NewDurationRule())
	validator.AddRule(NewDaysLeftRule())

	return validator
}

// AddRule 添加校验规则
func (rv *RecordValidator) AddRule(rule RecordRule) {
	rv.rules = append(rv.rules, rule)
	log.Printf("Added validation rule: %s", rule.Name())
}

// Check 校验单条记录，返回第一个失败规则的错误
func (rv *RecordValidator) Check(record ml.FlightRecord) error {
	rv.statsLock.Lock()
	defer rv.statsLock.Unlock()

	rv.stats.TotalProcessed++
	rv.stats.LastValidate = time.Now()

	for _, rule := range rv.rules {
		if err := rule.Check(record); err != nil {
			rv.stats.Rejected++
			rv.stats.Issues[rule.Name()]++
			return fmt.Errorf("%s: %w", rule.Name(), err)
		}
	}

	rv.stats.Passed++
	return nil
}

// Validate 批量校验，返回通过的记录
func (rv *RecordValidator) Validate(records []ml.FlightRecord) []ml.FlightRecord {
	var passed []ml.FlightRecord
	for _, record := range records {
		if err := rv.Check(record); err == nil {
			passed = append(passed, record)
		}
	}
	return passed
}

// Stats 获取统计信息
func (rv *RecordValidator) Stats() ValidationStats {
	rv.statsLock.RLock()
	defer rv.statsLock.RUnlock()

	return rv.stats
}

// ============ 校验规则实现 ============

// RequiredFieldsRule 必填字段规则
type RequiredFieldsRule struct{}

func NewRequiredFieldsRule() *RequiredFieldsRule {
	return &RequiredFieldsRule{}
}

func (r *RequiredFieldsRule) Name() string {
	return "required_fields"
}

func (r *RequiredFieldsRule) Check(record ml.FlightRecord) error {
	fields := map[string]string{
		"airline":          record.Airline,
		"source_city":      record.SourceCity,
		"destination_city": record.DestinationCity,
		"class":            record.Class,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("missing %s", name)
		}
	}
	return nil
}

// PriceRangeRule 票价范围规则
type PriceRangeRule struct {
	MinPrice float64
	MaxPrice float64
}

func NewPriceRangeRule() *PriceRangeRule {
	return &PriceRangeRule{
		MinPrice: 1,
		MaxPrice: 1000000,
	}
}

func (r *PriceRangeRule) Name() string {
	return "price_range"
}

func (r *PriceRangeRule) Check(record ml.FlightRecord) error {
	if record.Price < r.MinPrice || record.Price > r.MaxPrice {
		return fmt.Errorf("price %.2f out of range [%.2f, %.2f]", record.Price, r.MinPrice, r.MaxPrice)
	}
	return nil
}

// StopsRule 经停数规则
type StopsRule struct {
	MaxStops int
}

func NewStopsRule() *StopsRule {
	return &StopsRule{MaxStops: 10}
}

func (r *StopsRule) Name() string {
	return "stops_range"
}

func (r *StopsRule) Check(record ml.FlightRecord) error {
	if record.Stops < 0 || record.Stops > r.MaxStops {
		return fmt.Errorf("stops %d out of range [0, %d]", record.Stops, r.MaxStops)
	}
	return nil
}

// DurationRule 飞行时长规则
type DurationRule struct {
	MaxMinutes float64
}

func NewDurationRule() *DurationRule {
	return &DurationRule{MaxMinutes: 2880}
}

func (r *DurationRule) Name() string {
	return "duration_range"
}

func (r *DurationRule) Check(record ml.FlightRecord) error {
	if record.Duration <= 0 || record.Duration > r.MaxMinutes {
		return fmt.Errorf("duration %.1f out of range (0, %.0f]", record.Duration, r.MaxMinutes)
	}
	return nil
}

// DaysLeftRule 提前天数规则
type DaysLeftRule struct {
	MaxDays int
}

func NewDaysLeftRule() *DaysLeftRule {
	return &DaysLeftRule{MaxDays: 365}
}

func (r *DaysLeftRule) Name() string {
	return "days_left_range"
}

func (r *DaysLeftRule) Check(record ml.FlightRecord) error {
	if record.DaysLeft < 0 || record.DaysLeft > r.MaxDays {
		return fmt.Errorf("days_left %d out of range [0, %d]", record.DaysLeft, r.MaxDays)
	}
	return nil
}
