package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dating-api/internal/users"
)

func handleLikeUser(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ownerFromPath(c)
		if !ok {
			return
		}
		recipientID, ok := pathUUID(c, "recipientId")
		if !ok {
			return
		}

		if err := svc.Like(c.Request.Context(), id, recipientID); err != nil {
			respondError(c, err)
			return
		}

		c.Status(http.StatusOK)
	}
}
