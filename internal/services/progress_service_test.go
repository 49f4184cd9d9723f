// internal/services/progress_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressLifecycle(t *testing.T) {
	svc := NewProgressService()

	taskID := svc.StartTask(3)
	require.NotEmpty(t, taskID)

	task, exists := svc.GetTask(taskID)
	require.True(t, exists)
	assert.Equal(t, TaskStatusRunning, task.Status)
	assert.Equal(t, 3, task.Total)

	svc.Update(taskID, 2, "2/3 章节完成")
	task, _ = svc.GetTask(taskID)
	assert.Equal(t, 2, task.Done)

	svc.Complete(taskID, "done")
	task, _ = svc.GetTask(taskID)
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Equal(t, 3, task.Done)
}

func TestProgressSubscribe(t *testing.T) {
	svc := NewProgressService()
	taskID := svc.StartTask(2)

	ch := svc.Subscribe(taskID)

	svc.Update(taskID, 1, "first")
	svc.Fail(taskID, "boom")

	first := <-ch
	assert.Equal(t, 1, first.Done)

	second := <-ch
	assert.Equal(t, TaskStatusFailed, second.Status)
	assert.Equal(t, "boom", second.Message)

	svc.Unsubscribe(taskID, ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestProgressUnknownTaskIgnored(t *testing.T) {
	svc := NewProgressService()

	svc.Update("missing", 1, "x")
	_, exists := svc.GetTask("missing")
	assert.False(t, exists)
}
