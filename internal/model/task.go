// Package model はドメインモデルを定義する。
package model

// Task はユーザーが管理するタスクを表す。
// JSONフィールド名は永続化キー "tasks" に保存される形式と一致させる。
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     string       `json:"dueDate"`
	CreatedAt   string       `json:"createdAt"`
	UserID      string       `json:"userId"`
}

// TaskStatus はタスクの進行状態を表す。
type TaskStatus string

const (
	// TaskStatusPending は未着手のタスク。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress は進行中のタスク。
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusCompleted は完了したタスク。
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid は定義済みのステータスかどうかを返す。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority はタスクの優先度を表す。
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid は定義済みの優先度かどうかを返す。
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// TaskCreate はタスク作成時に呼び出し側が指定する項目。
// IDとCreatedAtはストアが採番する。
type TaskCreate struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     string       `json:"dueDate"`
	UserID      string       `json:"userId"`
}

// TaskPatch はタスクの部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
// IDとCreatedAtは識別子のため更新対象に含めない。
type TaskPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	DueDate     *string       `json:"dueDate,omitempty"`
	UserID      *string       `json:"userId,omitempty"`
}

// ApplyTo はパッチの非nilフィールドをtaskに上書きする。
func (p TaskPatch) ApplyTo(task *Task) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.DueDate != nil {
		task.DueDate = *p.DueDate
	}
	if p.UserID != nil {
		task.UserID = *p.UserID
	}
}

// TaskStats はステータス別のタスク件数を表す。
type TaskStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
}
