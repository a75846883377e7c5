package models

// Notification is the fire-and-forget message handed to the notification
// collaborator after a successful ledger mutation.
type Notification struct {
	UserId   int64          `json:"user_id"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

const (
	NotifyDeposit            = "deposit"
	NotifyWithdrawal         = "withdrawal"
	NotifyStake              = "stake"
	NotifyUnstake            = "unstake"
	NotifyRoiPayout          = "roi_payout"
	NotifyReferralCommission = "referral_commission"
)

// Actor is the already authenticated caller supplied by the auth collaborator.
type Actor struct {
	UserId int64
	Role   string
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
