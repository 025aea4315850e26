package corridor

import "github.com/goliatone/go-payouts/core"

var PayoutStatuses = core.NewStatusTable(core.PayoutStatusProcessing, map[string]core.PayoutStatus{
	"CREATED":        core.PayoutStatusCreated,
	"AWAITING_FUNDS": core.PayoutStatusAwaitingFunds,
	"FUNDS_RECEIVED": core.PayoutStatusFundsReceived,
	"IN_PROGRESS":    core.PayoutStatusProcessing,
	"EXCHANGING":     core.PayoutStatusProcessing,
	"SENT":           core.PayoutStatusSentToBeneficiary,
	"COMPLETE":       core.PayoutStatusCompleted,
	"FAILED":         core.PayoutStatusFailed,
	"CANCELLED":      core.PayoutStatusCancelled,
	"EXPIRED":        core.PayoutStatusExpired,
	"MANUAL_REVIEW":  core.PayoutStatusPendingReview,
	"REFUNDED":       core.PayoutStatusRefunded,
	"RETURNED":       core.PayoutStatusRefunded,
})

var VerificationStatuses = core.NewStatusTable(core.VerificationStatusNotStarted, map[string]core.VerificationStatus{
	"NOT_STARTED":  core.VerificationStatusNotStarted,
	"OPEN":         core.VerificationStatusPending,
	"SUBMITTED":    core.VerificationStatusInReview,
	"UNDER_REVIEW": core.VerificationStatusInReview,
	"NEEDS_INFO":   core.VerificationStatusAdditionalInfoRequired,
	"PASSED":       core.VerificationStatusApproved,
	"FAILED":       core.VerificationStatusRejected,
	"EXPIRED":      core.VerificationStatusExpired,
})

var clientStatuses = core.NewStatusTable(core.CustomerStatusPending, map[string]core.CustomerStatus{
	"ONBOARDING": core.CustomerStatusPending,
	"ENABLED":    core.CustomerStatusActive,
	"PAUSED":     core.CustomerStatusSuspended,
	"BLOCKED":    core.CustomerStatusBlocked,
	"OFFBOARDED": core.CustomerStatusClosed,
})

var documentStatuses = core.NewStatusTable(core.DocumentStatusPending, map[string]core.DocumentStatus{
	"STORED":   core.DocumentStatusUploaded,
	"CHECKING": core.DocumentStatusPending,
	"VALID":    core.DocumentStatusVerified,
	"INVALID":  core.DocumentStatusRejected,
})

var tiers = core.NewStatusTable(core.VerificationLevelNone, map[string]core.VerificationLevel{
	"0": core.VerificationLevelNone,
	"1": core.VerificationLevelBasic,
	"2": core.VerificationLevelStandard,
	"3": core.VerificationLevelEnhanced,
})

func tierOf(level core.VerificationLevel) int {
	switch level {
	case core.VerificationLevelBasic:
		return 1
	case core.VerificationLevelStandard:
		return 2
	case core.VerificationLevelEnhanced:
		return 3
	default:
		return 0
	}
}
