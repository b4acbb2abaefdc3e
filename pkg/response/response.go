package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Message is the flat body used for plain status responses.
type Message struct {
	Message string `json:"message"`
}

// BadRequest sends 400 with a message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Message{Message: msg})
}

// Unauthorized sends 401 with a message.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Message{Message: msg})
}

// NotFound sends 404 with a message.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Message{Message: msg})
}

// Internal sends 500 with a message.
func Internal(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, Message{Message: msg})
}

// Created sends 201 with an arbitrary body.
func Created(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}

// OK sends 200 with an arbitrary body.
func OK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}
