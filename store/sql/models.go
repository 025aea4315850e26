package sqlstore

import (
	"time"

	"github.com/goliatone/go-payouts/core"
	"github.com/uptrace/bun"
)

type customerRecord struct {
	bun.BaseModel `bun:"table:payout_customers,alias:pcu"`

	ID                 string                  `bun:"id,pk"`
	ExternalID         *string                 `bun:"external_id"`
	Type               string                  `bun:"type,notnull"`
	Role               string                  `bun:"role,notnull"`
	Status             string                  `bun:"status,notnull"`
	PrimaryProvider    string                  `bun:"primary_provider,notnull"`
	VerificationStatus string                  `bun:"verification_status,notnull"`
	Individual         *core.IndividualProfile `bun:"individual,type:jsonb"`
	Business           *core.BusinessProfile   `bun:"business,type:jsonb"`
	Contact            core.ContactInfo        `bun:"contact,type:jsonb,notnull"`
	BankAccounts       []core.BankAccount      `bun:"bank_accounts,type:jsonb,notnull"`
	ProviderIDs        map[string]string       `bun:"provider_ids,type:jsonb,notnull"`
	Verification       core.VerificationInfo   `bun:"verification,type:jsonb,notnull"`
	Metadata           map[string]any          `bun:"metadata,type:jsonb,notnull"`
	Version            int                     `bun:"version,notnull"`
	CreatedAt          time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time               `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type payoutRecord struct {
	bun.BaseModel `bun:"table:payouts,alias:po"`

	ID               string              `bun:"id,pk"`
	ExternalID       string              `bun:"external_id,notnull"`
	ProviderID       string              `bun:"provider_id,notnull"`
	ProviderOrderID  string              `bun:"provider_order_id,notnull"`
	QuoteID          string              `bun:"quote_id,notnull"`
	Status           string              `bun:"status,notnull"`
	ProviderStatus   string              `bun:"provider_status,notnull"`
	SourceCurrency   string              `bun:"source_currency,notnull"`
	SourceAmount     float64             `bun:"source_amount,notnull"`
	TargetCurrency   string              `bun:"target_currency,notnull"`
	TargetAmount     float64             `bun:"target_amount,notnull"`
	ExchangeRate     float64             `bun:"exchange_rate,notnull"`
	Fee              float64             `bun:"fee,notnull"`
	FeeBreakdown     *core.FeeBreakdown  `bun:"fee_breakdown,type:jsonb"`
	Network          string              `bun:"network,notnull"`
	SenderID         string              `bun:"sender_id,notnull"`
	BeneficiaryID    string              `bun:"beneficiary_id,notnull"`
	Sender           core.PayoutParty    `bun:"sender,type:jsonb,notnull"`
	Beneficiary      core.PayoutParty    `bun:"beneficiary,type:jsonb,notnull"`
	DepositWallet    *core.DepositWallet `bun:"deposit_wallet,type:jsonb"`
	BlockchainTxHash string              `bun:"blockchain_tx_hash,notnull"`
	BankReference    string              `bun:"bank_reference,notnull"`
	FailureReason    string              `bun:"failure_reason,notnull"`
	Purpose          string              `bun:"purpose,notnull"`
	Reference        string              `bun:"reference,notnull"`
	Metadata         map[string]any      `bun:"metadata,type:jsonb,notnull"`
	Version          int                 `bun:"version,notnull"`
	CreatedAt        time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	CompletedAt      *time.Time          `bun:"completed_at,nullzero"`
}

type quoteRecord struct {
	bun.BaseModel `bun:"table:payout_quotes,alias:pq"`

	ID              string             `bun:"id,pk"`
	ProviderID      string             `bun:"provider_id,notnull"`
	ProviderQuoteID string             `bun:"provider_quote_id,notnull"`
	SourceCurrency  string             `bun:"source_currency,notnull"`
	SourceAmount    float64            `bun:"source_amount,notnull"`
	TargetCurrency  string             `bun:"target_currency,notnull"`
	TargetAmount    float64            `bun:"target_amount,notnull"`
	ExchangeRate    float64            `bun:"exchange_rate,notnull"`
	Fee             float64            `bun:"fee,notnull"`
	FeeBreakdown    *core.FeeBreakdown `bun:"fee_breakdown,type:jsonb"`
	Network         string             `bun:"network,notnull"`
	ExpiresAt       *time.Time         `bun:"expires_at,nullzero"`
	CreatedAt       time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
