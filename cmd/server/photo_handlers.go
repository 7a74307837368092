package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dating-api/internal/models"
	"github.com/dating-api/internal/photo"
)

func handleListPhotos(svc *photo.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		photos, err := svc.List(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		out := make([]models.PhotoForDetailed, len(photos))
		for i, p := range photos {
			out[i] = models.ToPhotoForDetailed(p)
		}
		c.JSON(http.StatusOK, out)
	}
}

func handleGetPhoto(svc *photo.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := pathUUID(c, "id")
		if !ok {
			return
		}
		photoID, ok := pathUUID(c, "photoId")
		if !ok {
			return
		}

		p, err := svc.Get(c.Request.Context(), photoID)
		if err != nil {
			respondError(c, err)
			return
		}
		if p.UserID != userID {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		c.JSON(http.StatusOK, models.ToPhotoForReturn(*p))
	}
}

func handleAddPhoto(svc *photo.Service, maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := ownerFromPath(c)
		if !ok {
			return
		}

		if maxSize > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+(1<<20))
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if file.Size == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file is empty"})
			return
		}
		if maxSize > 0 && file.Size > maxSize {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", maxSize)})
			return
		}

		contentType := file.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file must be an image"})
			return
		}

		body, err := file.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer body.Close()

		p, err := svc.Add(c.Request.Context(), userID, &models.PhotoUpload{
			Filename:    file.Filename,
			ContentType: contentType,
			Size:        file.Size,
			Body:        body,
			Description: c.PostForm("description"),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Location", fmt.Sprintf("/api/users/%s/photos/%s", userID, p.ID))
		c.JSON(http.StatusCreated, models.ToPhotoForReturn(*p))
	}
}

func handleSetMainPhoto(svc *photo.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := ownerFromPath(c)
		if !ok {
			return
		}
		photoID, ok := pathUUID(c, "photoId")
		if !ok {
			return
		}

		if err := svc.SetMain(c.Request.Context(), userID, photoID); err != nil {
			respondError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

func handleDeletePhoto(svc *photo.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := ownerFromPath(c)
		if !ok {
			return
		}
		photoID, ok := pathUUID(c, "photoId")
		if !ok {
			return
		}

		if err := svc.Delete(c.Request.Context(), userID, photoID); err != nil {
			respondError(c, err)
			return
		}

		c.Status(http.StatusOK)
	}
}
