package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/governance"
	"github.com/stake-plus/council-treasury/src/council/identity"
)

var statusByCode = map[string]int{
	"NotCouncilMember":            http.StatusForbidden,
	"NotMember":                   http.StatusForbidden,
	"NoCouncilMemberSigned":       http.StatusForbidden,
	"RecordNotFound":              http.StatusNotFound,
	"RecordExists":                http.StatusConflict,
	"AlreadyMember":               http.StatusConflict,
	"DuplicateVote":               http.StatusConflict,
	"AlreadyReviewed":             http.StatusConflict,
	"ProposalNotPending":          http.StatusConflict,
	"CannotResolveBeforeReview":   http.StatusConflict,
	"TitleTooLong":                http.StatusBadRequest,
	"ContentTooLong":              http.StatusBadRequest,
	"InvalidVoteType":             http.StatusBadRequest,
	"InvalidRoleOpKind":           http.StatusBadRequest,
	"InvalidParams":               http.StatusBadRequest,
	"InsufficientTreasuryBalance": http.StatusUnprocessableEntity,
	"MismatchedTreasuryAccount":   http.StatusUnprocessableEntity,
	"InsufficientMultisigSigners": http.StatusUnprocessableEntity,
	"CountOutOfRange":             http.StatusUnprocessableEntity,
}

// fail writes err as {"err","code"} with the status its kind maps to.
func fail(c *gin.Context, log *zap.Logger, err error) {
	code := governance.Code(err)
	status, ok := statusByCode[code]
	switch {
	case ok:
	case errors.Is(err, identity.ErrBadAddress):
		status, code = http.StatusBadRequest, "BadAddress"
	case errors.Is(err, identity.ErrBadSignature),
		errors.Is(err, identity.ErrNoChallenge),
		errors.Is(err, identity.ErrBadToken):
		status, code = http.StatusUnauthorized, "Unauthorized"
	default:
		status, code = http.StatusInternalServerError, "Internal"
		log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"err": err.Error(), "code": code})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"err": err.Error(), "code": "BadRequest"})
}
