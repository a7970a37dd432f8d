package httpapi

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/rating-bot/internal/features/rating"
)

// NameResolver подставляет имена участников в ответы.
type NameResolver interface {
	DisplayName(ctx context.Context, userID int64) string
}

// Ratings: read-only API лидербордов.
type Ratings struct {
	reports  *rating.Reports
	names    NameResolver
	topLimit int
	now      func() time.Time
}

func NewRatings(reports *rating.Reports, names NameResolver, topLimit int) *Ratings {
	return &Ratings{reports: reports, names: names, topLimit: topLimit, now: time.Now}
}

// BoardEntry: строка лидерборда.
type BoardEntry struct {
	Rank   int    `json:"rank"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Value  int64  `json:"value"`
}

type board struct {
	ChatID  int64        `json:"chat_id"`
	Window  string       `json:"window,omitempty"`
	Entries []BoardEntry `json:"entries"`
}

func (r *Ratings) RegisterRouter(g gin.IRouter) {
	chats := g.Group("/v1/chats/:chat")
	chats.GET("/top", wrap(r.Top))
	chats.GET("/givers", wrap(r.Givers))
	chats.GET("/takers", wrap(r.Takers))
	chats.GET("/users/:user", wrap(r.User))
}

func (r *Ratings) Top(c *gin.Context) error {
	chatID, limit, err := r.boardParams(c)
	if err != nil {
		return err
	}
	entries, err := r.reports.TopByRating(c.Request.Context(), chatID, limit)
	if err != nil {
		return err
	}
	success(c, board{ChatID: chatID, Entries: r.entries(c.Request.Context(), entries)})
	return nil
}

func (r *Ratings) Givers(c *gin.Context) error {
	return r.window(c, r.reports.TopGivers)
}

func (r *Ratings) Takers(c *gin.Context) error {
	return r.window(c, r.reports.TopTakers)
}

type windowQuery func(ctx context.Context, scopeID int64, since time.Time, limit int) ([]rating.Entry, error)

func (r *Ratings) window(c *gin.Context, query windowQuery) error {
	chatID, limit, err := r.boardParams(c)
	if err != nil {
		return err
	}

	// Без window: за всё время
	var since time.Time
	raw := c.Query("window")
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return badRequest("window must be a positive duration, e.g. 24h")
		}
		since = r.now().Add(-d)
	}

	entries, err := query(c.Request.Context(), chatID, since, limit)
	if err != nil {
		return err
	}
	success(c, board{ChatID: chatID, Window: raw, Entries: r.entries(c.Request.Context(), entries)})
	return nil
}

func (r *Ratings) User(c *gin.Context) error {
	chatID, err := strconv.ParseInt(c.Param("chat"), 10, 64)
	if err != nil {
		return badRequest("chat must be an integer")
	}
	userID, err := strconv.ParseInt(c.Param("user"), 10, 64)
	if err != nil {
		return badRequest("user must be an integer")
	}

	s, err := r.reports.Summary(c.Request.Context(), chatID, userID)
	if err != nil {
		return err
	}
	success(c, gin.H{
		"summary": s,
		"name":    r.name(c.Request.Context(), userID),
	})
	return nil
}

func (r *Ratings) boardParams(c *gin.Context) (int64, int, error) {
	chatID, err := strconv.ParseInt(c.Param("chat"), 10, 64)
	if err != nil {
		return 0, 0, badRequest("chat must be an integer")
	}
	limit := r.topLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 100 {
			return 0, 0, badRequest("limit must be between 1 and 100")
		}
	}
	return chatID, limit, nil
}

func (r *Ratings) entries(ctx context.Context, in []rating.Entry) []BoardEntry {
	out := make([]BoardEntry, 0, len(in))
	for i, e := range in {
		out = append(out, BoardEntry{
			Rank:   i + 1,
			UserID: e.UserID,
			Name:   r.name(ctx, e.UserID),
			Value:  e.Value,
		})
	}
	return out
}

func (r *Ratings) name(ctx context.Context, userID int64) string {
	if r.names == nil {
		return ""
	}
	return r.names.DisplayName(ctx, userID)
}
