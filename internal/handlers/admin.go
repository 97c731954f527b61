package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type issueTokenRequest struct {
	Days int `json:"days" binding:"omitempty,min=1,max=3650"`
}

func (h HandlerSet) AdminListTokens(c *gin.Context) {
	views, err := h.auth.ListTokens(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(views))
	for _, v := range views {
		items = append(items, gin.H{
			"token":         v.Token,
			"ownerId":       v.OwnerID,
			"status":        v.Status,
			"remainingDays": v.RemainingDays,
			"expiresInDays": v.ExpiresInDays,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AdminIssueToken(c *gin.Context) {
	var req issueTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	tok, err := h.auth.IssueToken(c.Request.Context(), req.Days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":         tok.Token,
		"expiresInDays": tok.ExpiresInDays,
	})
}
