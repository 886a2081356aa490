package dto

import "time"

type AccountEmailCount struct {
	AccountID   string     `json:"accountId"`
	AccountName string     `json:"accountName"`
	Website     string     `json:"website,omitempty"`
	EmailCount  int        `json:"emailCount"`
	LastEmailAt *time.Time `json:"lastEmailAt,omitempty"`
}

// AccountFilter is a typed directory predicate. Nil fields are not applied.
type AccountFilter struct {
	OwnerID     *string
	IDs         []string
	WithWebsite bool
}

// AccountScope restricts account visibility. AllAccounts wins over OwnerID;
// an empty OwnerID without AllAccounts matches no account.
type AccountScope struct {
	OwnerID     string
	AllAccounts bool
}

func (s AccountScope) Filter() AccountFilter {
	if s.AllAccounts {
		return AccountFilter{}
	}
	owner := s.OwnerID
	return AccountFilter{OwnerID: &owner}
}
