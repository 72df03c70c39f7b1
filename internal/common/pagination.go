// File: internal/common/pagination.go
package common

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// LimitOffset is an offset-based page window.
type LimitOffset struct {
	Limit  int
	Offset int
}

// ClampLimitOffset applies the default limit when limit is not positive,
// caps it at max, and floors a negative offset at zero.
func ClampLimitOffset(limit, offset, def, max int) LimitOffset {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return LimitOffset{Limit: limit, Offset: offset}
}

// GetLimitOffsetParams reads ?limit= and ?offset= from the query string.
// Unparseable values fall back to the defaults.
func GetLimitOffsetParams(c *gin.Context, def, max int) LimitOffset {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil {
		limit = def
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}
	return ClampLimitOffset(limit, offset, def, max)
}
