package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clubdeck/clubdeck/internal/middleware"
	"github.com/clubdeck/clubdeck/internal/push"
)

// SaveSubscriptionRequest mirrors PushSubscription.toJSON() from the
// browser: endpoint plus Base64 keys.
type SaveSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

// GetVAPIDKey hands out the public key a client needs to register.
func GetVAPIDKey(ctx *gin.Context) {
	if !Pusher.Configured() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured on this server"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"public_key": Pusher.PublicKey()})
}

// SaveSubscription upserts the caller's push registration, keyed by user
// ID: a browser profile owns one registration, so re-subscribing
// overwrites.
func SaveSubscription(ctx *gin.Context) {
	currentUser, err := middleware.CurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req SaveSubscriptionRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := push.Subscription{
		UserID:    currentUser.ID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
	}

	if err := Subscriptions.Upsert(ctx.Request.Context(), sub); err != nil {
		log.Printf("Failed to store push subscription for user %d: %v", currentUser.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Push subscription saved"})
}

func DeleteSubscription(ctx *gin.Context) {
	currentUser, err := middleware.CurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := Subscriptions.Delete(ctx.Request.Context(), currentUser.ID); err != nil {
		log.Printf("Failed to delete push subscription for user %d: %v", currentUser.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Push subscription deleted"})
}

// TestPush sends a real push through the delivery service to the
// caller's own endpoints.
func TestPush(ctx *gin.Context) {
	currentUser, err := middleware.CurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if !Pusher.Configured() {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Push notifications are not configured on this server"})
		return
	}

	msg := push.Message{Title: "Clubdeck", Body: "Push notifications are working", Tag: "clubdeck-test"}

	if err := Pusher.SendToUser(ctx.Request.Context(), currentUser.ID, msg); err != nil {
		log.Printf("Test push for user %d failed: %v", currentUser.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send test notification"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Test notification sent"})
}
