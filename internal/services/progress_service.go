// internal/services/progress_service.go
package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// 任务状态
const (
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// TaskProgress 长任务进度快照
type TaskProgress struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressService 跟踪批量任务进度并向订阅者推送更新
type ProgressService struct {
	mu          sync.RWMutex
	tasks       map[string]*TaskProgress
	subscribers map[string][]chan TaskProgress
}

// NewProgressService 创建进度服务
func NewProgressService() *ProgressService {
	return &ProgressService{
		tasks:       make(map[string]*TaskProgress),
		subscribers: make(map[string][]chan TaskProgress),
	}
}

// StartTask 注册一个新任务并返回任务ID
func (s *ProgressService) StartTask(total int) string {
	taskID := uuid.New().String()

	s.mu.Lock()
	s.tasks[taskID] = &TaskProgress{
		TaskID:    taskID,
		Status:    TaskStatusRunning,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Unlock()

	return taskID
}

// Update 更新任务进度
func (s *ProgressService) Update(taskID string, done int, message string) {
	s.update(taskID, func(task *TaskProgress) {
		task.Done = done
		task.Message = message
	})
}

// Complete 标记任务完成
func (s *ProgressService) Complete(taskID, message string) {
	s.update(taskID, func(task *TaskProgress) {
		task.Status = TaskStatusCompleted
		task.Done = task.Total
		task.Message = message
	})
}

// Fail 标记任务失败
func (s *ProgressService) Fail(taskID, message string) {
	s.update(taskID, func(task *TaskProgress) {
		task.Status = TaskStatusFailed
		task.Message = message
	})
}

func (s *ProgressService) update(taskID string, apply func(*TaskProgress)) {
	s.mu.Lock()
	task, exists := s.tasks[taskID]
	if !exists {
		s.mu.Unlock()
		return
	}

	apply(task)
	task.UpdatedAt = time.Now().UTC()
	snapshot := *task

	// 非阻塞推送，慢订阅者丢弃中间进度
	for _, ch := range s.subscribers[taskID] {
		select {
		case ch <- snapshot:
		default:
		}
	}
	s.mu.Unlock()
}

// GetTask 读取任务当前进度
func (s *ProgressService) GetTask(taskID string) (TaskProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return TaskProgress{}, false
	}
	return *task, true
}

// Subscribe 订阅任务进度更新
func (s *ProgressService) Subscribe(taskID string) chan TaskProgress {
	ch := make(chan TaskProgress, 16)

	s.mu.Lock()
	s.subscribers[taskID] = append(s.subscribers[taskID], ch)
	s.mu.Unlock()

	return ch
}

// Unsubscribe 取消订阅
func (s *ProgressService) Unsubscribe(taskID string, ch chan TaskProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	channels := s.subscribers[taskID]
	for i, sub := range channels {
		if sub == ch {
			s.subscribers[taskID] = append(channels[:i], channels[i+1:]...)
			close(ch)
			break
		}
	}
	if len(s.subscribers[taskID]) == 0 {
		delete(s.subscribers, taskID)
	}
}
