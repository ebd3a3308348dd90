package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"capdraft/engine"
)

// writeBidError maps the engine's closed error set to stable JSON error codes.
// Anything outside the set is logged and surfaced as transient.
func writeBidError(c *gin.Context, op string, err error) {
	var (
		tooLow   *engine.BidTooLowError
		contract *engine.ContractYearsError
		budget   *engine.InsufficientBudgetError
	)
	switch {
	case errors.Is(err, engine.ErrRoomNotOpen):
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{
			"code":    "ROOM_NOT_OPEN",
			"message": err.Error(),
		}})
	case errors.Is(err, engine.ErrItemUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{
			"code":    "ITEM_UNAVAILABLE",
			"message": err.Error(),
		}})
	case errors.Is(err, engine.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "ITEM_NOT_FOUND",
			"message": err.Error(),
		}})
	case errors.Is(err, engine.ErrTeamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "TEAM_NOT_FOUND",
			"message": err.Error(),
		}})
	case errors.Is(err, engine.ErrNoRosterSpots):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{
			"code":    "NO_ROSTER_SPOTS",
			"message": err.Error(),
		}})
	case errors.As(err, &tooLow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{
			"code":    "BID_TOO_LOW",
			"message": tooLow.Error(),
			"min":     tooLow.Min,
			"current": tooLow.Current,
		}})
	case errors.As(err, &contract):
		payload := gin.H{
			"code":     "CONTRACT_YEARS_INVALID",
			"message":  contract.Error(),
			"policy":   contract.Policy,
			"required": contract.Required,
			"tierMin":  contract.TierMin,
		}
		if contract.TierMax != nil {
			payload["tierMax"] = *contract.TierMax
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": payload})
	case errors.As(err, &budget):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{
			"code":      "INSUFFICIENT_BUDGET",
			"message":   budget.Error(),
			"available": budget.Available,
			"requested": budget.Requested,
		}})
	default:
		slog.Error("Unexpected engine failure", slog.String("op", op), slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{
			"code":    "TRANSIENT",
			"message": "temporary failure, re-check state before retrying",
		}})
	}
}
