package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clubdeck/clubdeck/db"
	"github.com/clubdeck/clubdeck/internal/middleware"
	"github.com/clubdeck/clubdeck/internal/models"
	"github.com/clubdeck/clubdeck/internal/notify"
	"github.com/clubdeck/clubdeck/internal/push"
)

type SendNotificationRequest struct {
	RecipientID *uint          `json:"recipient_id"`
	Kind        string         `json:"kind" binding:"required"`
	Title       string         `json:"title" binding:"required"`
	Message     string         `json:"message"`
	Payload     map[string]any `json:"payload"`
}

type FeedResponse struct {
	Notifications []notify.Item `json:"notifications"`
	UnreadCount   int           `json:"unread_count"`
}

// GetFeed rebuilds and returns the caller's merged feed. The admin-origin
// query is included only for admin callers.
func GetFeed(ctx *gin.Context) {
	agg, err := callerAggregator(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := agg.Rebuild(ctx.Request.Context()); err != nil {
		log.Printf("Failed to build feed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	ctx.JSON(http.StatusOK, FeedResponse{
		Notifications: agg.Feed(),
		UnreadCount:   agg.UnreadCount(),
	})
}

func MarkRead(ctx *gin.Context) {
	agg, err := callerAggregator(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	gateway := notify.NewGateway(Notifications, agg)

	if err := gateway.MarkRead(ctx.Request.Context(), ctx.Param("id")); err != nil {
		log.Printf("Failed to mark notification read: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func MarkAllRead(ctx *gin.Context) {
	agg, err := callerAggregator(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// The batch needs the caller's current unread set.
	if err := agg.Rebuild(ctx.Request.Context()); err != nil {
		log.Printf("Failed to build feed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	gateway := notify.NewGateway(Notifications, agg)

	if err := gateway.MarkAllRead(ctx.Request.Context()); err != nil {
		log.Printf("Failed to mark all notifications read: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "unread_count": agg.UnreadCount()})
}

// SendNotification inserts one user-targeted notification and pushes it
// to the recipient's registered endpoints. Without an explicit recipient
// the message is routed to an admin.
func SendNotification(ctx *gin.Context) {
	currentUser, err := middleware.CurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req SendNotificationRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipientID, err := resolveRecipient(req.RecipientID)
	if err != nil {
		log.Printf("Failed to resolve notification recipient: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "No recipient available"})
		return
	}

	agg := notify.NewAggregator(Notifications, currentUser.ID, currentUser.IsAdmin())
	gateway := notify.NewGateway(Notifications, agg)

	item, err := gateway.Send(ctx.Request.Context(), recipientID, req.Kind, req.Title, req.Message, req.Payload)
	if err != nil {
		log.Printf("Failed to send notification: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification"})
		return
	}

	go func() {
		msg := push.Message{Title: item.Title, Body: item.Message, Tag: item.Kind}
		if err := Pusher.SendToUser(context.Background(), recipientID, msg); err != nil {
			log.Printf("Push delivery for notification %s failed: %v", item.ID, err)
		}
	}()

	ctx.JSON(http.StatusCreated, gin.H{"notification": item})
}

func callerAggregator(ctx *gin.Context) (*notify.Aggregator, error) {
	currentUser, err := middleware.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	return notify.NewAggregator(Notifications, currentUser.ID, currentUser.IsAdmin()), nil
}

// resolveRecipient picks the destination for a send. With no explicit
// recipient the row goes to the lowest-ID admin; whether it should
// instead fan out to every admin is an open product decision, so the
// policy lives in this one place.
func resolveRecipient(explicit *uint) (uint, error) {
	if explicit != nil {
		return *explicit, nil
	}

	var admin models.User

	err := db.DB.Where("role = ?", models.RoleAdmin).Order("id").First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errors.New("no admin user exists")
		}
		return 0, err
	}

	return admin.ID, nil
}
