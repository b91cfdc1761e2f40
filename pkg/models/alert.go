package models

import "time"

// AlertType is the quantity an alert watches.
type AlertType string

const (
	AlertPrice  AlertType = "price"
	AlertVolume AlertType = "volume"
	AlertRSI    AlertType = "rsi"
	AlertMACD   AlertType = "macd"
)

// AlertCondition is the comparison an alert applies.
type AlertCondition string

const (
	ConditionAbove      AlertCondition = "above"
	ConditionBelow      AlertCondition = "below"
	ConditionCrossover  AlertCondition = "crossover"
	ConditionCrossunder AlertCondition = "crossunder"
)

// Alert is a user-defined trigger on one symbol.
type Alert struct {
	ID          string         `json:"id"                     yaml:"id"`
	Symbol      string         `json:"symbol"                 yaml:"symbol"`
	Type        AlertType      `json:"type"                   yaml:"type"`
	Condition   AlertCondition `json:"condition"              yaml:"condition"`
	Target      float64        `json:"target"                 yaml:"target"`
	CreatedAt   time.Time      `json:"created_at"             yaml:"created_at"`
	TriggeredAt *time.Time     `json:"triggered_at,omitempty" yaml:"triggered_at,omitempty"`
	Observed    float64        `json:"observed,omitempty"     yaml:"observed,omitempty"`
}

// AlertEvent is published when an alert fires.
type AlertEvent struct {
	Alert     Alert     `json:"alert"`
	Observed  float64   `json:"observed"`
	Timestamp time.Time `json:"timestamp"`
}
