package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/rbac-api/internal"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Cursor marks a position in an ordered listing: the order column value plus the row id tie-breaker.
type Cursor struct {
	Value string `json:"value"`
	ID    string `json:"id"`
}

type CursorParams struct {
	Cursor         string
	Limit          int
	OrderBy        string
	Direction      Direction
	IncludeDeleted bool
}

type Page[T any] struct {
	Items          []T     `json:"items"`
	NextCursor     *string `json:"next_cursor"`
	PreviousCursor *string `json:"previous_cursor"`
	HasNext        bool    `json:"has_next"`
	HasPrevious    bool    `json:"has_previous"`
	Limit          int     `json:"limit"`
}

func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(raw)
}

func DecodeCursor(s string) (Cursor, error) {
	var c Cursor
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return c, internal.ErrInvalidCursor.WithCause(err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, internal.ErrInvalidCursor.WithCause(err)
	}
	if c.ID == "" {
		return c, internal.ErrInvalidCursor
	}
	return c, nil
}

// ParseCursorParams reads cursor, limit, order_by, direction and include_deleted from a query string.
func ParseCursorParams(q url.Values, allowedOrderBy []string) (CursorParams, error) {
	p := CursorParams{
		Cursor:    q.Get("cursor"),
		Limit:     DefaultLimit,
		OrderBy:   "created_at",
		Direction: Forward,
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return p, internal.NewValidationFieldError("limit", fmt.Sprintf("limit must be between 1 and %d", MaxLimit), internal.ErrCodeValidationFailed)
		}
		p.Limit = n
	}

	if v := q.Get("order_by"); v != "" {
		allowed := false
		for _, a := range allowedOrderBy {
			if a == v {
				allowed = true
				break
			}
		}
		if !allowed {
			return p, internal.NewValidationFieldError("order_by", fmt.Sprintf("order_by must be one of [%s]", strings.Join(allowedOrderBy, " ")), internal.ErrCodeValidationFailed)
		}
		p.OrderBy = v
	}

	switch Direction(q.Get("direction")) {
	case "", Forward:
		p.Direction = Forward
	case Backward:
		p.Direction = Backward
	default:
		return p, internal.NewValidationFieldError("direction", "direction must be one of [forward backward]", internal.ErrCodeValidationFailed)
	}

	if v := q.Get("include_deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, internal.NewValidationFieldError("include_deleted", "include_deleted must be a boolean", internal.ErrCodeValidationFailed)
		}
		p.IncludeDeleted = b
	}

	if p.Cursor != "" {
		if _, err := DecodeCursor(p.Cursor); err != nil {
			return p, err
		}
	}

	return p, nil
}

// Scope orders by the requested column (id as tie-breaker), applies the cursor bound
// and fetches one extra row so BuildPage can tell whether another page exists.
func (p CursorParams) Scope() (func(*gorm.DB) *gorm.DB, error) {
	col := p.OrderBy
	if col == "" {
		col = "created_at"
	}
	cmp, order := ">", "ASC"
	if p.Direction == Backward {
		cmp, order = "<", "DESC"
	}

	var (
		bound   interface{}
		afterID string
	)
	if p.Cursor != "" {
		c, err := DecodeCursor(p.Cursor)
		if err != nil {
			return nil, err
		}
		bound, err = cursorValue(col, c.Value)
		if err != nil {
			return nil, err
		}
		afterID = c.ID
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	return func(db *gorm.DB) *gorm.DB {
		if bound != nil {
			db = db.Where(
				fmt.Sprintf("(%s %s ?) OR (%s = ? AND id %s ?)", col, cmp, col, cmp),
				bound, bound, afterID,
			)
		}
		return db.Order(fmt.Sprintf("%s %s, id %s", col, order, order)).Limit(limit + 1)
	}, nil
}

func cursorValue(col, raw string) (interface{}, error) {
	if strings.HasSuffix(col, "_at") {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, internal.ErrInvalidCursor.WithCause(err)
		}
		return t, nil
	}
	return raw, nil
}

// TimeValue formats a timestamp the way cursorValue expects it back.
func TimeValue(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// BuildPage trims the extra row fetched by Scope and computes the cursors.
func BuildPage[T any](items []T, p CursorParams, cursorOf func(T) Cursor) Page[T] {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	page := Page[T]{Items: items, Limit: limit, HasPrevious: p.Cursor != ""}
	if len(items) > limit {
		page.Items = items[:limit]
		page.HasNext = true
	}
	if page.Items == nil {
		page.Items = []T{}
	}

	if page.HasNext && len(page.Items) > 0 {
		next := EncodeCursor(cursorOf(page.Items[len(page.Items)-1]))
		page.NextCursor = &next
	}
	if page.HasPrevious && len(page.Items) > 0 {
		prev := EncodeCursor(cursorOf(page.Items[0]))
		page.PreviousCursor = &prev
	}
	return page
}

// MapPage converts page items while keeping the cursors.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{
		Items:          make([]U, len(p.Items)),
		NextCursor:     p.NextCursor,
		PreviousCursor: p.PreviousCursor,
		HasNext:        p.HasNext,
		HasPrevious:    p.HasPrevious,
		Limit:          p.Limit,
	}
	for i, item := range p.Items {
		out.Items[i] = fn(item)
	}
	return out
}
