// Package principals models the opaque user-principal document fetched
// from the broker's HTTP API and the account-selection rule the session
// applies before it can log in to the streamer.
package principals

import (
	"context"
	"fmt"
)

// Account is one brokerage account associated with the logged-in user.
type Account struct {
	AccountID         string `json:"accountId"`
	Company           string `json:"company"`
	Segment           string `json:"segment"`
	AccountCdDomainID string `json:"accountCdDomainId"`
}

// StreamerInfo carries the bootstrap parameters the streaming gateway
// needs for login.
type StreamerInfo struct {
	StreamerSocketURL string `json:"streamerSocketUrl"`
	Token             string `json:"token"`
	UserGroup         string `json:"userGroup"`
	AccessLevel       string `json:"accessLevel"`
	AppID             string `json:"appId"`
	ACL               string `json:"acl"`
	TokenTimestamp    string `json:"tokenTimestamp"`
}

// Principals is the document returned by the principals HTTP endpoint.
type Principals struct {
	Accounts                 []Account      `json:"accounts"`
	StreamerInfo             StreamerInfo   `json:"streamerInfo"`
	StreamerSubscriptionKeys map[string]any `json:"streamerSubscriptionKeys"`
}

// Provider is the external collaborator that fetches principals.
// HTTPProvider is the net/http-backed implementation in this package; the
// session depends only on this interface.
type Provider interface {
	GetUserPrincipals(ctx context.Context) (*Principals, error)
}

// SelectAccount applies the selection rule from SPEC_FULL §3: a single
// account is selected automatically; with more than one, accountID must be
// non-empty and match exactly one account by string equality.
func SelectAccount(p *Principals, accountID string) (Account, error) {
	if len(p.Accounts) == 1 {
		return p.Accounts[0], nil
	}
	if accountID == "" {
		return Account{}, fmt.Errorf("initialized with unspecified account_id, but multiple accounts exist")
	}
	for _, acct := range p.Accounts {
		if acct.AccountID == accountID {
			return acct, nil
		}
	}
	return Account{}, fmt.Errorf("no account found with account_id %s", accountID)
}
