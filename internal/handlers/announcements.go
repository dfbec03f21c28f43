package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clubdeck/clubdeck/internal/middleware"
	"github.com/clubdeck/clubdeck/internal/push"
)

type CreateAnnouncementRequest struct {
	Title   string `json:"title" binding:"required"`
	Message string `json:"message"`
}

// CreateAnnouncement inserts a club-wide broadcast and fans it out to
// every registered push endpoint. Admin only.
func CreateAnnouncement(ctx *gin.Context) {
	currentUser, err := middleware.CurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateAnnouncementRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	announcement, err := Notifications.CreateAnnouncement(ctx.Request.Context(), currentUser.ID, req.Title, req.Message)
	if err != nil {
		log.Printf("Failed to create announcement: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create announcement"})
		return
	}

	go func() {
		msg := push.Message{Title: announcement.Title, Body: announcement.Message, Tag: "clubdeck-announcement"}
		if err := Pusher.Broadcast(context.Background(), msg); err != nil {
			log.Printf("Announcement broadcast push failed: %v", err)
		}
	}()

	ctx.JSON(http.StatusCreated, gin.H{
		"announcement": gin.H{
			"id":      announcement.ID,
			"title":   announcement.Title,
			"message": announcement.Message,
		},
	})
}
