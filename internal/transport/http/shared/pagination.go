package shared

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit/offset, or page/pageSize (1-based) when no
// offset is given. Bad values fall back to the defaults.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	limit := positiveInt(q, "limit", 0)
	if limit == 0 {
		limit = positiveInt(q, "pageSize", defaultLimit)
	}
	if maxLimit > 0 {
		limit = min(limit, maxLimit)
	}

	offset := 0
	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	} else if page := positiveInt(q, "page", 1); page > 1 {
		offset = (page - 1) * limit
	}
	return Pagination{Limit: limit, Offset: offset}
}

func Page(r *http.Request) Pagination {
	return ParsePagination(r, DefaultPageLimit, MaxPageLimit)
}

func positiveInt(q url.Values, key string, fallback int) int {
	v, err := strconv.Atoi(q.Get(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
