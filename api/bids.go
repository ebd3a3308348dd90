package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	redisAdapter "capdraft/adapters/redis"
)

type placeBidRequest struct {
	TeamID        uuid.UUID `json:"teamId" binding:"required"`
	Amount        int64     `json:"amount" binding:"required,gt=0"`
	ContractYears int       `json:"contractYears" binding:"required,gte=1"`
}

// Place a bid on an item
// (POST /api/rooms/{roomID}/items/{itemID}/bids)
func (impl *ServerImpl) PostBid(c *gin.Context) {
	const op = "PostBid"
	roomID, itemID, ok := pathIDs(c)
	if !ok {
		return
	}
	var request placeBidRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	// Hold the distributed per-item lock across validation and commit so that
	// multiple instances queue on the same item instead of piling onto the
	// database's row lock.
	ctx := c.Request.Context()
	if impl.redisClient != nil {
		lockKey := fmt.Sprintf("%sitem:%s:lock", impl.config.Redis.KeyPrefix, itemID)
		dMutex := redisAdapter.NewAutoRenewMutex(impl.redisClient, lockKey)
		lockCtx, err := dMutex.Lock(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{
				"code":    "TRANSIENT",
				"message": "fail to acquire bid lock",
			}})
			return
		}
		defer func() {
			if _, err := dMutex.Unlock(); err != nil {
				slog.Warn("Fail to release bid lock", slog.String("op", op), slog.Any("error", err))
			}
		}()
		ctx = lockCtx
	}

	receipt, err := impl.processor.PlaceBid(ctx, roomID, itemID, request.TeamID, request.Amount, request.ContractYears)
	if err != nil {
		writeBidError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bidId":       receipt.BidID,
		"amount":      receipt.Amount,
		"nextMinimum": receipt.NextMinimum,
		"expiresAt":   receipt.ExpiresAt,
	})
}

// Retract the current winning bid, owner only
// (DELETE /api/rooms/{roomID}/items/{itemID}/bid)
func (impl *ServerImpl) DeleteBid(c *gin.Context) {
	const op = "DeleteBid"
	if _, ok := impl.authorizeOwner(c); !ok {
		return
	}
	roomID, itemID, ok := pathIDs(c)
	if !ok {
		return
	}
	if err := impl.processor.RetractBid(c.Request.Context(), roomID, itemID); err != nil {
		writeBidError(c, op, err)
		return
	}
	c.Status(http.StatusOK)
}

// Mark an unbid item UNSOLD, owner only
// (POST /api/rooms/{roomID}/items/{itemID}/unsold)
func (impl *ServerImpl) PostUnsold(c *gin.Context) {
	const op = "PostUnsold"
	if _, ok := impl.authorizeOwner(c); !ok {
		return
	}
	roomID, itemID, ok := pathIDs(c)
	if !ok {
		return
	}
	if err := impl.processor.MarkUnsold(c.Request.Context(), roomID, itemID); err != nil {
		writeBidError(c, op, err)
		return
	}
	c.Status(http.StatusOK)
}

// Get current item state
// (GET /api/items/{itemID})
func (impl *ServerImpl) GetItemState(c *gin.Context) {
	const op = "GetItemState"
	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid item id"})
		return
	}
	state, err := impl.processor.ItemState(c.Request.Context(), itemID)
	if err != nil {
		writeBidError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"itemId":           state.ItemID,
		"status":           state.Status,
		"winningTeamId":    state.WinningTeamID,
		"winningBidAmount": state.WinningBidAmount,
		"contractYears":    state.ContractYears,
		"expiresAt":        state.ExpiresAt,
	})
}

func pathIDs(c *gin.Context) (roomID, itemID uuid.UUID, ok bool) {
	roomID, err := uuid.Parse(c.Param("roomID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid room id"})
		return uuid.Nil, uuid.Nil, false
	}
	itemID, err = uuid.Parse(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid item id"})
		return uuid.Nil, uuid.Nil, false
	}
	return roomID, itemID, true
}
