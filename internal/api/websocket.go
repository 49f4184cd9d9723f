// internal/api/websocket.go
package api

import (
	"net/http"

	"github.com/Corphon/KidStoryMCP/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressWebSocket 推送批量插图任务进度
//
// 连接建立后先发送当前快照，之后持续推送更新，任务结束
// （完成或失败）时发送最终状态并关闭连接。
func (h *Handler) ProgressWebSocket(c *gin.Context) {
	taskID := c.Param("task_id")

	snapshot, exists := h.Progress.GetTask(taskID)
	if !exists {
		ResponseValidationError(c, "任务不存在")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket升级失败", map[string]interface{}{
			"task_id": taskID,
			"error":   err.Error(),
		})
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}
	if snapshot.Status != services.TaskStatusRunning {
		return
	}

	ch := h.Progress.Subscribe(taskID)
	defer h.Progress.Unsubscribe(taskID, ch)

	for update := range ch {
		if err := conn.WriteJSON(update); err != nil {
			return
		}
		if update.Status != services.TaskStatusRunning {
			return
		}
	}
}
