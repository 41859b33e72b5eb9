package webserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/identity"
	"github.com/stake-plus/council-treasury/src/council/types"
)

const defaultListLimit = 50

type Daos struct {
	eng           *governance.Engine
	log           *zap.Logger
	recordDeposit uint64
}

func NewDaos(eng *governance.Engine, recordDeposit uint64, log *zap.Logger) Daos {
	return Daos{eng: eng, log: log, recordDeposit: recordDeposit}
}

// daoParam accepts the registry address or its numeric id.
func daoParam(c *gin.Context) string {
	raw := c.Param("dao")
	if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return addr.Registry(id)
	}
	return raw
}

func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 || n > 500 {
		return defaultListLimit
	}
	return n
}

type daoView struct {
	*types.Registry
	ProposalThreshold   uint64 `json:"proposalThreshold"`
	RoleChangeThreshold uint64 `json:"roleChangeThreshold"`
}

func viewDao(reg *types.Registry) daoView {
	return daoView{
		Registry:            reg,
		ProposalThreshold:   governance.ProposalThreshold(reg),
		RoleChangeThreshold: governance.RoleChangeThreshold(reg),
	}
}

func (d Daos) Create(c *gin.Context) {
	var req struct {
		ID                 uint64  `json:"id"`
		VotePct            uint16  `json:"votePct"`
		ConsensusPct       uint16  `json:"consensusPct"`
		MinMultisigSigners uint8   `json:"minMultisigSigners"`
		RequestLifetime    int64   `json:"requestLifetime"`
		RecordDeposit      *uint64 `json:"recordDeposit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.RequestLifetime == 0 {
		req.RequestLifetime = governance.DefaultRequestLifetime
	}
	deposit := d.recordDeposit
	if req.RecordDeposit != nil {
		deposit = *req.RecordDeposit
	}
	reg, err := d.eng.Initialize(c, principal(c), governance.InitParams{
		ID:                 req.ID,
		VotePct:            req.VotePct,
		ConsensusPct:       req.ConsensusPct,
		MinMultisigSigners: req.MinMultisigSigners,
		RequestLifetime:    req.RequestLifetime,
		RecordDeposit:      deposit,
	})
	if err != nil {
		fail(c, d.log, err)
		return
	}
	c.JSON(http.StatusCreated, viewDao(reg))
}

func (d Daos) List(c *gin.Context) {
	regs, err := d.eng.ListRegistries(c)
	if err != nil {
		fail(c, d.log, err)
		return
	}
	out := make([]daoView, 0, len(regs))
	for i := range regs {
		out = append(out, viewDao(&regs[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (d Daos) Get(c *gin.Context) {
	reg, err := d.eng.GetRegistry(c, daoParam(c))
	if err != nil {
		fail(c, d.log, err)
		return
	}
	c.JSON(http.StatusOK, viewDao(reg))
}

func (d Daos) Fund(c *gin.Context) {
	var req struct {
		Amount uint64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	dao := daoParam(c)
	if err := d.eng.FundTreasury(c, dao, principal(c), req.Amount); err != nil {
		fail(c, d.log, err)
		return
	}
	balance, err := d.eng.TreasuryBalance(c, dao)
	if err != nil {
		fail(c, d.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (d Daos) Treasury(c *gin.Context) {
	dao := daoParam(c)
	balance, err := d.eng.TreasuryBalance(c, dao)
	if err != nil {
		fail(c, d.log, err)
		return
	}
	entries, err := d.eng.TreasuryEntries(c, dao, limitParam(c))
	if err != nil {
		fail(c, d.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance, "entries": entries})
}

func (d Daos) Enroll(c *gin.Context) {
	m, err := d.eng.Enroll(c, daoParam(c), principal(c))
	if err != nil {
		fail(c, d.log, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (d Daos) Exit(c *gin.Context) {
	if err := d.eng.Exit(c, daoParam(c), principal(c)); err != nil {
		fail(c, d.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (d Daos) Member(c *gin.Context) {
	who, err := identity.Canonical(c.Param("addr"))
	if err != nil {
		fail(c, d.log, err)
		return
	}
	m, err := d.eng.GetMember(c, daoParam(c), who)
	if err != nil {
		fail(c, d.log, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
