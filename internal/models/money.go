package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	moneyPlaces   int32 = 2
	measurePlaces int32 = 3
)

// Money 统一金额类型（保留 2 位小数）
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(moneyPlaces)}
}

// MarshalJSON 统一输出 2 位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(moneyPlaces).StringFixed(moneyPlaces))
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	d, err := unmarshalDecimal(b)
	if err != nil {
		return err
	}
	m.Decimal = d.Round(moneyPlaces)
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(moneyPlaces).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(moneyPlaces)
	return nil
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return m.Decimal.Round(moneyPlaces).StringFixed(moneyPlaces)
}

// Measure 重量（kg）与体积（m³）度量，保留 3 位小数
type Measure struct {
	decimal.Decimal
}

// NewMeasure 从 decimal 创建度量值
func NewMeasure(value decimal.Decimal) Measure {
	return Measure{Decimal: value.Round(measurePlaces)}
}

// NewMeasureFromFloat 从浮点数创建度量值
func NewMeasureFromFloat(value float64) Measure {
	return NewMeasure(decimal.NewFromFloat(value))
}

// MarshalJSON 输出 3 位小数的字符串
func (m Measure) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(measurePlaces).StringFixed(measurePlaces))
}

// UnmarshalJSON 解析度量值（字符串或数字）
func (m *Measure) UnmarshalJSON(b []byte) error {
	d, err := unmarshalDecimal(b)
	if err != nil {
		return err
	}
	m.Decimal = d.Round(measurePlaces)
	return nil
}

// Value 用于数据库写入
func (m Measure) Value() (driver.Value, error) {
	return m.Decimal.Round(measurePlaces).Value()
}

// Scan 用于数据库读取
func (m *Measure) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(measurePlaces)
	return nil
}

// String 返回 3 位小数格式
func (m Measure) String() string {
	return m.Decimal.Round(measurePlaces).StringFixed(measurePlaces)
}

func unmarshalDecimal(b []byte) (decimal.Decimal, error) {
	if len(b) == 0 || string(b) == "null" {
		return decimal.Zero, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return decimal.Zero, err
		}
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}
