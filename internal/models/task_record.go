package models

import "time"

// TaskRecord 后台任务进度记录
type TaskRecord struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                 // 主键
	TaskID     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"task_id"` // 任务ID
	UserID     uint       `gorm:"index;not null" json:"user_id"`                        // 发起人
	Name       string     `gorm:"type:varchar(200);not null" json:"name"`               // 任务名称
	Percent    int        `gorm:"not null;default:0" json:"percent"`                    // 进度百分比
	Status     string     `gorm:"type:varchar(20);index;not null" json:"status"`        // 状态
	Message    string     `gorm:"type:text" json:"message"`                             // 当前消息
	Error      string     `gorm:"type:text" json:"error,omitempty"`                     // 错误信息
	Result     JSON       `gorm:"type:json" json:"result,omitempty"`                    // 结果
	StartedAt  *time.Time `json:"started_at,omitempty"`                                 // 开始时间
	FinishedAt *time.Time `json:"finished_at,omitempty"`                                // 结束时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt  time.Time  `json:"updated_at"`                                           // 更新时间
}

// TableName 指定表名
func (TaskRecord) TableName() string {
	return "task_records"
}

// Finished 任务是否已结束
func (t *TaskRecord) Finished() bool {
	return t != nil && t.FinishedAt != nil
}

// Notification 站内通知
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`                        // 主键
	UserID    uint      `gorm:"index;not null" json:"user_id"`               // 接收人
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`     // 标题
	Message   string    `gorm:"type:text" json:"message"`                    // 内容
	Level     string    `gorm:"type:varchar(20);not null" json:"level"`      // 级别
	Link      string    `gorm:"type:varchar(255)" json:"link,omitempty"`     // 跳转链接
	IsRead    bool      `gorm:"not null;default:false;index" json:"is_read"` // 是否已读
	CreatedAt time.Time `gorm:"index" json:"created_at"`                     // 创建时间
}

// TableName 指定表名
func (Notification) TableName() string {
	return "notifications"
}
