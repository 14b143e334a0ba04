package controller

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("path parameter %s must be a positive integer", name)
	}
	return id, nil
}
