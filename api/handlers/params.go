package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("query parameter %s must be an integer", name)
	}
	return value, nil
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.Errorf("query parameter %s must be a boolean", name)
	}
	return value, nil
}
