package webserver

import (
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/identity"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

// Requests serves proposals and role changes, which share the
// vote/review/resolve lifecycle.
type Requests struct {
	eng    *governance.Engine
	log    *zap.Logger
	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
}

func NewRequests(eng *governance.Engine, log *zap.Logger) Requests {
	return Requests{
		eng:    eng,
		log:    log,
		strict: bluemonday.StrictPolicy(),
		ugc:    bluemonday.UGCPolicy(),
	}
}

func filterParam(c *gin.Context) (store.Filter, error) {
	f := store.Filter{Limit: limitParam(c)}
	raw := strings.ToLower(c.Query("status"))
	if raw == "" || raw == "all" {
		return f, nil
	}
	for _, s := range []types.Status{types.StatusPending, types.StatusApproved, types.StatusDismissed, types.StatusExpired} {
		if s.String() == raw {
			s := s
			f.Status = &s
			return f, nil
		}
	}
	return f, fmt.Errorf("unknown status %q", raw)
}

// plain strips markup p does not allow and undoes its entity escaping, so
// length limits and address derivation see the text the author typed.
func plain(p *bluemonday.Policy, s string) string {
	return html.UnescapeString(p.Sanitize(s))
}

type voteRequest struct {
	Vote *uint8 `json:"vote" binding:"required"`
}

func (r Requests) SubmitProposal(c *gin.Context) {
	var req struct {
		Title          string `json:"title" binding:"required"`
		Content        string `json:"content" binding:"required"`
		TargetTreasury string `json:"targetTreasury" binding:"required"`
		Amount         uint64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := r.eng.SubmitProposal(c, daoParam(c), principal(c), governance.ProposalInput{
		Title:          strings.TrimSpace(plain(r.strict, req.Title)),
		Content:        plain(r.ugc, req.Content),
		TargetTreasury: req.TargetTreasury,
		AmountRequired: req.Amount,
	})
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (r Requests) ListProposals(c *gin.Context) {
	f, err := filterParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	out, err := r.eng.ListProposals(c, daoParam(c), f)
	if err != nil {
		fail(c, r.log, err)
		return
	}
	if out == nil {
		out = []types.Proposal{}
	}
	c.JSON(http.StatusOK, out)
}

func (r Requests) GetProposal(c *gin.Context) {
	p, err := r.eng.GetProposal(c, daoParam(c), c.Param("id"))
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposal":       p,
		"releaseMessage": string(governance.ReleaseMessage(p)),
	})
}

func (r Requests) VoteProposal(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := r.eng.VoteOnProposal(c, daoParam(c), c.Param("id"), principal(c), *req.Vote)
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r Requests) ReviewProposal(c *gin.Context) {
	p, err := r.eng.ReviewProposal(c, daoParam(c), c.Param("id"), principal(c))
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r Requests) ResolveProposal(c *gin.Context) {
	var req struct {
		TargetTreasury string                    `json:"targetTreasury"`
		Signers        []governance.SignerRecord `json:"signers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for i := range req.Signers {
		// unparseable principals are left as sent and counted as non-members
		if canon, err := identity.Canonical(req.Signers[i].Principal); err == nil {
			req.Signers[i].Principal = canon
		}
	}
	p, err := r.eng.ResolveProposal(c, daoParam(c), c.Param("id"), principal(c), governance.ResolveInput{
		TargetTreasury: req.TargetTreasury,
		Signers:        req.Signers,
	})
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r Requests) InitiateRoleChange(c *gin.Context) {
	var req struct {
		Op     string `json:"op" binding:"required"`
		Target string `json:"target" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	op, err := governance.ParseRoleOp(req.Op)
	if err != nil {
		fail(c, r.log, err)
		return
	}
	target, err := identity.Canonical(req.Target)
	if err != nil {
		fail(c, r.log, err)
		return
	}
	rc, err := r.eng.InitiateRoleChange(c, daoParam(c), principal(c), op, target)
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusCreated, rc)
}

func (r Requests) ListRoleChanges(c *gin.Context) {
	f, err := filterParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	out, err := r.eng.ListRoleChanges(c, daoParam(c), f)
	if err != nil {
		fail(c, r.log, err)
		return
	}
	if out == nil {
		out = []types.RoleChange{}
	}
	c.JSON(http.StatusOK, out)
}

func (r Requests) GetRoleChange(c *gin.Context) {
	rc, err := r.eng.GetRoleChange(c, daoParam(c), c.Param("id"))
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}

func (r Requests) VoteRoleChange(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rc, err := r.eng.VoteOnRoleChange(c, daoParam(c), c.Param("id"), principal(c), *req.Vote)
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}

func (r Requests) ReviewRoleChange(c *gin.Context) {
	rc, err := r.eng.ReviewRoleChange(c, daoParam(c), c.Param("id"), principal(c))
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}

func (r Requests) ResolveRoleChange(c *gin.Context) {
	rc, err := r.eng.ResolveRoleChange(c, daoParam(c), c.Param("id"), principal(c))
	if err != nil {
		fail(c, r.log, err)
		return
	}
	c.JSON(http.StatusOK, rc)
}
