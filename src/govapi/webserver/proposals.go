package webserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ncatdao/govapi/src/govapi/chain"
	"github.com/ncatdao/govapi/src/govapi/service"
	"github.com/ncatdao/govapi/src/govapi/types"
)

type Proposals struct {
	svc      *service.Service
	sanitize *bluemonday.Policy
}

func NewProposals(svc *service.Service) Proposals {
	return Proposals{svc: svc, sanitize: bluemonday.StrictPolicy()}
}

func (p Proposals) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	proposals, err := p.svc.ListProposals(c.Request.Context(), page)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

func (p Proposals) Create(c *gin.Context) {
	var req struct {
		Address     string `json:"address" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Content     string `json:"content" binding:"required"`
		Contact     string `json:"contact"`
		ContactType string `json:"contact_type"`
		RequireFund bool   `json:"require_fund"`
		TargetFund  uint64 `json:"target_fund"`
		HasExpire   bool   `json:"has_expire"`
		ExpireDate  string `json:"expire_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if !chain.IsValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address"})
		return
	}

	title := strings.TrimSpace(p.sanitize.Sanitize(req.Title))
	content := strings.TrimSpace(p.sanitize.Sanitize(req.Content))
	contact := strings.TrimSpace(p.sanitize.Sanitize(req.Contact))
	if len(title) < 20 || len(title) > 255 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "title must be 20-255 characters"})
		return
	}
	if len(content) < 250 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "content must be at least 250 characters"})
		return
	}
	if contact != "" && (len(contact) < 3 || len(contact) > 255 || strings.TrimSpace(req.ContactType) == "") {
		c.JSON(http.StatusBadRequest, gin.H{"err": "contact must be 3-255 characters with a contact_type"})
		return
	}

	var expireDate *time.Time
	if req.HasExpire {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ExpireDate))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "expire_date must be RFC3339"})
			return
		}
		expireDate = &t
	}

	proposal, err := p.svc.SubmitProposal(c.Request.Context(), req.Address, service.SubmitInput{
		Title:       title,
		Content:     content,
		Contact:     contact,
		ContactType: strings.TrimSpace(req.ContactType),
		RequireFund: req.RequireFund,
		TargetFund:  req.TargetFund,
		HasExpire:   req.HasExpire,
		ExpireDate:  expireDate,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "success", "proposal": proposal})
}

func (p Proposals) Vote(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		Support *bool  `json:"support" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	id, ok := proposalID(c)
	if !ok {
		return
	}
	if !chain.IsValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address"})
		return
	}

	proposal, err := p.svc.CastVote(c.Request.Context(), req.Address, id, *req.Support)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "proposal": proposal})
}

func (p Proposals) Fund(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
		TxHash  string `json:"tx_hash" binding:"required"`
		Amount  uint64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	id, ok := proposalID(c)
	if !ok {
		return
	}
	if !chain.IsValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid address"})
		return
	}

	proposal, err := p.svc.FundProposal(c.Request.Context(), req.Address, id, req.TxHash, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "proposal": proposal})
}

func (p Proposals) Decide(c *gin.Context) {
	var req struct {
		Address  string `json:"address" binding:"required"`
		Accepted *bool  `json:"accepted" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	id, ok := proposalID(c)
	if !ok {
		return
	}

	proposal, err := p.svc.DecideProposal(c.Request.Context(), req.Address, id, *req.Accepted)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "success", "proposal": proposal})
}

func proposalID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": "bad proposal id"})
		return 0, false
	}
	return id, true
}

// fail maps service errors to HTTP statuses. Retryable failures carry a flag
// so clients can offer a retry instead of a permanent denial.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": err.Error()})
	case errors.Is(err, types.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"err": err.Error()})
	case errors.Is(err, types.ErrDuplicateVote),
		errors.Is(err, types.ErrVotingClosed),
		errors.Is(err, types.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
	case errors.Is(err, types.ErrBlacklisted),
		errors.Is(err, types.ErrInsufficientWeight),
		errors.Is(err, types.ErrIneligible),
		errors.Is(err, types.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
	case types.IsRetryable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": err.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}
