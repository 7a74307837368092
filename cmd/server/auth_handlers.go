package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dating-api/internal/auth"
	"github.com/dating-api/internal/models"
)

// handleRegister 处理用户注册
func handleRegister(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserForRegister
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}

		user, err := authService.Register(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Location", "/api/users/"+user.ID.String())
		c.JSON(http.StatusCreated, models.ToUserForDetailed(*user, time.Now()))
	}
}

// handleLogin 处理用户登录
func handleLogin(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.UserForLogin
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, err)
			return
		}

		resp, err := authService.Login(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
