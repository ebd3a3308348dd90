package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"capdraft/engine"
	"capdraft/models"
)

// Room snapshot for polling clients
// (GET /api/rooms/{roomID}/sync?team={teamID})
func (impl *ServerImpl) GetRoomSync(c *gin.Context) {
	const op = "GetRoomSync"
	roomID, err := uuid.Parse(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid room id"})
		return
	}
	teamID := uuid.Nil
	if raw := c.Query("team"); raw != "" {
		teamID, err = uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid team id"})
			return
		}
	}
	view, err := impl.store.SyncView(c.Request.Context(), roomID, teamID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "room or team not found"})
			return
		}
		c.Error(fmt.Errorf("[%s] Fail to build sync view, err=%w", op, err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "temporary failure"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Unread notifications for a team
// (GET /api/teams/{teamID}/notifications)
func (impl *ServerImpl) GetNotifications(c *gin.Context) {
	const op = "GetNotifications"
	teamID, err := uuid.Parse(c.Param("teamID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid team id"})
		return
	}
	var notifications []models.Notification
	result := impl.store.DB().
		Where("team_id = ? AND read_at IS NULL", teamID).
		Order("created_at ASC").
		Find(&notifications)
	if result.Error != nil {
		c.Error(fmt.Errorf("[%s] Fail to list notifications, err=%w", op, result.Error))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "temporary failure"})
		return
	}
	output := make([]gin.H, len(notifications))
	for i, n := range notifications {
		output[i] = gin.H{
			"id":      n.ID,
			"type":    n.Type,
			"message": n.Message,
			"itemId":  n.ItemID,
			"at":      n.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(output), "notifications": output})
}

type ackRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// Mark notifications as read
// (POST /api/teams/{teamID}/notifications/ack)
func (impl *ServerImpl) PostNotificationsAck(c *gin.Context) {
	const op = "PostNotificationsAck"
	teamID, err := uuid.Parse(c.Param("teamID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid team id"})
		return
	}
	var request ackRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	now := time.Now()
	result := impl.store.DB().
		Model(&models.Notification{}).
		Where("team_id = ? AND id IN ? AND read_at IS NULL", teamID, request.IDs).
		Update("read_at", now)
	if result.Error != nil {
		c.Error(fmt.Errorf("[%s] Fail to ack notifications, err=%w", op, result.Error))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "temporary failure"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acked": result.RowsAffected})
}
