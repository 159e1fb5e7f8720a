package entity

import "time"

// ComparisonResult 基础模型与微调模型对同一提示词的输出
type ComparisonResult struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// ComparisonSession 验证页的状态：idle -> busy -> idle(带结果)
type ComparisonSession struct {
	TaskID    string            `json:"task_id"`
	Prompt    string            `json:"prompt"`
	Busy      bool              `json:"busy"`
	RunID     string            `json:"run_id,omitempty"`
	Result    *ComparisonResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MetricCard 自动评估指标卡片，仅作展示
type MetricCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
}
