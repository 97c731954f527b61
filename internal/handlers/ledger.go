package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"caku/internal/apperr"
	"caku/internal/middleware"
	"caku/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type transactionResponse struct {
	ID          int64     `json:"id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Category    *string   `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

type summaryResponse struct {
	Month   string `json:"month,omitempty"`
	Balance int64  `json:"balance"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
	Count   int    `json:"count"`
}

type categoryResponse struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
	Expense  int64  `json:"expense"`
}

// filterFromQuery reads month (MM-YYYY), category, q and limit.
func (h HandlerSet) filterFromQuery(c *gin.Context) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	if month := c.Query("month"); month != "" {
		year, m, err := h.ledger.ParseMonth(month)
		if err != nil {
			return filter, err
		}
		filter = h.ledger.MonthRange(year, m)
	}
	filter.Category = c.Query("category")
	filter.Keyword = c.Query("q")

	filter.Limit = defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxPageSize {
			return filter, apperr.Validation("limit must be between 1 and 500")
		}
		filter.Limit = v
	}
	return filter, nil
}

func (h HandlerSet) ListTransactions(c *gin.Context) {
	filter, err := h.filterFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	rows, err := h.ledger.List(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]transactionResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, transactionResponse{
			ID:          r.ID,
			Amount:      r.Amount,
			Description: r.Description,
			Category:    r.Category,
			CreatedAt:   r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) Summary(c *gin.Context) {
	filter, err := h.filterFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	userID := middleware.UserID(c)

	balance, err := h.ledger.Balance(c.Request.Context(), userID, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	rows, err := h.ledger.All(c.Request.Context(), userID, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := summaryResponse{Month: c.Query("month"), Balance: balance, Count: len(rows)}
	for _, r := range rows {
		if r.Amount > 0 {
			resp.Income += r.Amount
		} else {
			resp.Expense -= r.Amount
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) Categories(c *gin.Context) {
	filter, err := h.filterFromQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	totals, err := h.ledger.CategoryTotals(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]categoryResponse, 0, len(totals))
	for _, t := range totals {
		name := "Uncategorized"
		if t.Category != nil && *t.Category != "" {
			name = *t.Category
		}
		items = append(items, categoryResponse{Category: name, Total: t.Total, Expense: -t.TotalNegative})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) Me(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	var expires *time.Time
	if claims.ExpiresAt != nil {
		expires = &claims.ExpiresAt.Time
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    claims.UserID,
		"admin":     h.auth.IsAdmin(claims.UserID),
		"expiresAt": expires,
	})
}

func (h HandlerSet) Wishlist(c *gin.Context) {
	if h.wishlist == nil {
		c.JSON(http.StatusOK, gin.H{"items": []any{}})
		return
	}
	items, err := h.wishlist.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		out = append(out, gin.H{
			"id":          it.ID,
			"name":        it.Name,
			"price":       it.Price,
			"url":         it.URL,
			"lastChecked": it.LastChecked,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}
