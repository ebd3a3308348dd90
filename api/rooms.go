package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"capdraft/models"
)

const headerRoomPasscode = "X-Room-Passcode"

type createRoomRequest struct {
	Name     string               `json:"name" binding:"required"`
	Passcode string               `json:"passcode" binding:"required"`
	Settings *models.RoomSettings `json:"settings"`
}

// Create a new auction room
// (POST /api/rooms)
func (impl *ServerImpl) PostRoom(c *gin.Context) {
	const op = "PostRoom"
	var request createRoomRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	settings := models.DefaultSettings()
	if request.Settings != nil {
		settings = *request.Settings
	}
	room := models.Room{
		ID:       uuid.New(),
		Name:     request.Name,
		Passcode: request.Passcode,
		Status:   models.RoomDraft,
		Settings: settings,
	}
	if result := impl.store.DB().Create(&room); result.Error != nil {
		c.Error(fmt.Errorf("[%s] Fail to create room, err=%w", op, result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "fail to create room"})
		return
	}
	c.Header("Location", room.ID.String())
	c.JSON(http.StatusCreated, gin.H{"id": room.ID})
}

type patchStatusRequest struct {
	Status models.RoomStatus `json:"status" binding:"required"`
}

// Toggle room status, owner only
// (PATCH /api/rooms/{roomID}/status)
func (impl *ServerImpl) PatchRoomStatus(c *gin.Context) {
	const op = "PatchRoomStatus"
	room, ok := impl.authorizeOwner(c)
	if !ok {
		return
	}
	var request patchStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	valid := []models.RoomStatus{models.RoomDraft, models.RoomOpen, models.RoomPaused, models.RoomCompleted}
	if !lo.Contains(valid, request.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid room status"})
		return
	}
	// COMPLETED is terminal.
	if room.Status == models.RoomCompleted {
		c.JSON(http.StatusConflict, gin.H{"message": "room is completed"})
		return
	}
	room.Status = request.Status
	if result := impl.store.DB().Model(room).Update("status", request.Status); result.Error != nil {
		c.Error(fmt.Errorf("[%s] Fail to update room status, err=%w", op, result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "fail to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": room.Status})
}

// Replace room settings, owner only
// (PUT /api/rooms/{roomID}/settings)
func (impl *ServerImpl) PutRoomSettings(c *gin.Context) {
	const op = "PutRoomSettings"
	room, ok := impl.authorizeOwner(c)
	if !ok {
		return
	}
	var settings models.RoomSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if result := impl.store.DB().Model(room).Update("settings", settings); result.Error != nil {
		c.Error(fmt.Errorf("[%s] Fail to update room settings, err=%w", op, result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "fail to update settings"})
		return
	}
	c.Status(http.StatusOK)
}

type createTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	OwnerName   string `json:"ownerName"`
	Budget      *int64 `json:"budget"`
	RosterSpots *int   `json:"rosterSpots"`
}

// Register a team in a room; budget and spots default from room settings
// (POST /api/rooms/{roomID}/teams)
func (impl *ServerImpl) PostTeam(c *gin.Context) {
	const op = "PostTeam"
	room, ok := impl.loadRoom(c)
	if !ok {
		return
	}
	var request createTeamRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	team := models.Team{
		ID:          uuid.New(),
		RoomID:      room.ID,
		Name:        request.Name,
		OwnerName:   request.OwnerName,
		Budget:      lo.FromPtrOr(request.Budget, room.Settings.StartingBudget),
		RosterSpots: lo.FromPtrOr(request.RosterSpots, room.Settings.RosterSize),
	}
	if result := impl.store.DB().Create(&team); result.Error != nil {
		c.Error(fmt.Errorf("[%s] Fail to create team, err=%w", op, result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "fail to create team"})
		return
	}
	c.Header("Location", team.ID.String())
	c.JSON(http.StatusCreated, gin.H{"id": team.ID})
}

type importItem struct {
	Name     string `json:"name" binding:"required"`
	Position string `json:"position"`
}

type importItemsRequest struct {
	Items []importItem `json:"items" binding:"required,min=1,dive"`
}

// Bulk import items into a room, owner only. Items are created PENDING.
// (POST /api/rooms/{roomID}/items)
func (impl *ServerImpl) PostItems(c *gin.Context) {
	const op = "PostItems"
	room, ok := impl.authorizeOwner(c)
	if !ok {
		return
	}
	var request importItemsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	items := make([]models.Item, len(request.Items))
	for i, entry := range request.Items {
		items[i] = models.Item{
			ID:       uuid.New(),
			RoomID:   room.ID,
			Name:     entry.Name,
			Position: entry.Position,
			Status:   models.ItemPending,
		}
	}
	if result := impl.store.DB().Create(&items); result.Error != nil {
		c.Error(fmt.Errorf("[%s] Fail to import items, err=%w", op, result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "fail to import items"})
		return
	}
	ids := lo.Map(items, func(item models.Item, _ int) uuid.UUID { return item.ID })
	c.JSON(http.StatusCreated, gin.H{"count": len(items), "ids": ids})
}

// loadRoom resolves the roomID path parameter.
func (impl *ServerImpl) loadRoom(c *gin.Context) (*models.Room, bool) {
	roomID, err := uuid.Parse(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid room id"})
		return nil, false
	}
	var room models.Room
	if result := impl.store.DB().First(&room, "id = ?", roomID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "room not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "fail to load room"})
		return nil, false
	}
	return &room, true
}

// authorizeOwner additionally checks the room passcode header. The engine
// trusts caller identity beyond this gate; real authentication stays outside.
func (impl *ServerImpl) authorizeOwner(c *gin.Context) (*models.Room, bool) {
	room, ok := impl.loadRoom(c)
	if !ok {
		return nil, false
	}
	if c.GetHeader(headerRoomPasscode) != room.Passcode {
		c.JSON(http.StatusForbidden, gin.H{"message": "invalid room passcode"})
		return nil, false
	}
	return room, true
}
