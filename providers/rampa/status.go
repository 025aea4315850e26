package rampa

import "github.com/goliatone/go-payouts/core"

// Order states as reported by the Rampa API.
var PayoutStatuses = core.NewStatusTable(core.PayoutStatusProcessing, map[string]core.PayoutStatus{
	"pending":           core.PayoutStatusCreated,
	"created":           core.PayoutStatusCreated,
	"awaiting_deposit":  core.PayoutStatusAwaitingFunds,
	"deposit_received":  core.PayoutStatusFundsReceived,
	"converting":        core.PayoutStatusProcessing,
	"processing":        core.PayoutStatusProcessing,
	"payout_sent":       core.PayoutStatusSentToBeneficiary,
	"completed":         core.PayoutStatusCompleted,
	"settled":           core.PayoutStatusCompleted,
	"failed":            core.PayoutStatusFailed,
	"rejected":          core.PayoutStatusFailed,
	"cancelled":         core.PayoutStatusCancelled,
	"canceled":          core.PayoutStatusCancelled,
	"expired":           core.PayoutStatusExpired,
	"on_hold":           core.PayoutStatusPendingReview,
	"compliance_review": core.PayoutStatusPendingReview,
	"refunded":          core.PayoutStatusRefunded,
	"returned":          core.PayoutStatusRefunded,
})

var VerificationStatuses = core.NewStatusTable(core.VerificationStatusNotStarted, map[string]core.VerificationStatus{
	"none":            core.VerificationStatusNotStarted,
	"not_started":     core.VerificationStatusNotStarted,
	"started":         core.VerificationStatusPending,
	"pending":         core.VerificationStatusPending,
	"reviewing":       core.VerificationStatusInReview,
	"in_review":       core.VerificationStatusInReview,
	"action_required": core.VerificationStatusAdditionalInfoRequired,
	"additional_info": core.VerificationStatusAdditionalInfoRequired,
	"approved":        core.VerificationStatusApproved,
	"verified":        core.VerificationStatusApproved,
	"rejected":        core.VerificationStatusRejected,
	"declined":        core.VerificationStatusRejected,
	"expired":         core.VerificationStatusExpired,
})

var customerStatuses = core.NewStatusTable(core.CustomerStatusPending, map[string]core.CustomerStatus{
	"pending":   core.CustomerStatusPending,
	"active":    core.CustomerStatusActive,
	"suspended": core.CustomerStatusSuspended,
	"frozen":    core.CustomerStatusSuspended,
	"blocked":   core.CustomerStatusBlocked,
	"closed":    core.CustomerStatusClosed,
})

var documentStatuses = core.NewStatusTable(core.DocumentStatusPending, map[string]core.DocumentStatus{
	"uploaded": core.DocumentStatusUploaded,
	"received": core.DocumentStatusUploaded,
	"pending":  core.DocumentStatusPending,
	"verified": core.DocumentStatusVerified,
	"accepted": core.DocumentStatusVerified,
	"rejected": core.DocumentStatusRejected,
})

var verificationLevels = core.NewStatusTable(core.VerificationLevelNone, map[string]core.VerificationLevel{
	"none":     core.VerificationLevelNone,
	"tier_0":   core.VerificationLevelNone,
	"basic":    core.VerificationLevelBasic,
	"tier_1":   core.VerificationLevelBasic,
	"standard": core.VerificationLevelStandard,
	"tier_2":   core.VerificationLevelStandard,
	"enhanced": core.VerificationLevelEnhanced,
	"tier_3":   core.VerificationLevelEnhanced,
})
