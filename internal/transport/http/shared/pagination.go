package shared

import (
	"net/http"
	"strconv"
)

const TotalCountHeader = "X-Total-Count"

// Page is a limit/offset window read from the query string. ?page=N is
// accepted as an alternative to ?offset and is 1-based.
type Page struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Page {
	q := r.URL.Query()
	page := Page{Limit: positiveInt(q.Get("limit"), defaultLimit)}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	if raw := q.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			page.Offset = v
		}
	} else if n := positiveInt(q.Get("page"), 1); n > 1 {
		page.Offset = (n - 1) * page.Limit
	}
	return page
}

// SetTotal exposes the unpaged row count so clients can size their pager.
func (p Page) SetTotal(w http.ResponseWriter, total int) {
	w.Header().Set(TotalCountHeader, strconv.Itoa(total))
}

func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
