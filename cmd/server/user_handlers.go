package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dating-api/internal/middleware"
	"github.com/dating-api/internal/models"
	"github.com/dating-api/internal/users"
)

type paginationHeader struct {
	CurrentPage  int `json:"currentPage"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalItems   int `json:"totalItems"`
	TotalPages   int `json:"totalPages"`
}

func setPagination[T any](c *gin.Context, page *models.PagedResult[T]) {
	header, _ := json.Marshal(paginationHeader{
		CurrentPage:  page.PageNumber,
		ItemsPerPage: page.PageSize,
		TotalItems:   page.TotalCount,
		TotalPages:   page.TotalPages,
	})
	c.Header("Pagination", string(header))
	c.Header("X-Total-Count", strconv.Itoa(page.TotalCount))
	c.Header("X-Page-Number", strconv.Itoa(page.PageNumber))
	c.Header("X-Page-Size", strconv.Itoa(page.PageSize))
}

// pathUUID parses a path parameter, answering 400 when it is not a UUID.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// ownerFromPath returns the :id parameter when it matches the caller.
func ownerFromPath(c *gin.Context) (uuid.UUID, bool) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	caller, ok := middleware.UserID(c)
	if !ok || caller != id {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return id, true
}

func handleListUsers(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params models.UserParams
		if err := c.ShouldBindQuery(&params); err != nil {
			respondValidation(c, err)
			return
		}
		if params.PageNumber == 0 {
			if page, err := strconv.Atoi(c.Query("page")); err == nil {
				params.PageNumber = page
			}
		}
		params.UserID, _ = middleware.UserID(c)

		page, err := svc.List(c.Request.Context(), params)
		if err != nil {
			respondError(c, err)
			return
		}

		now := time.Now()
		out := models.MapPage(page, func(u models.User) models.UserForList {
			return models.ToUserForList(u, now)
		})

		setPagination(c, out)
		c.JSON(http.StatusOK, out.Items)
	}
}

func handleGetUser(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "id")
		if !ok {
			return
		}

		user, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ToUserForDetailed(*user, time.Now()))
	}
}

func handleUpdateUser(svc *users.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ownerFromPath(c)
		if !ok {
			return
		}

		var req models.UserForUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}

		if err := svc.Update(c.Request.Context(), id, id, &req); err != nil {
			respondError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
