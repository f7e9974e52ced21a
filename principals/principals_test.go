package principals

import "testing"

func TestSelectAccount_Single(t *testing.T) {
	p := &Principals{Accounts: []Account{{AccountID: "111"}}}
	acct, err := SelectAccount(p, "")
	if err != nil {
		t.Fatalf("SelectAccount: %v", err)
	}
	if acct.AccountID != "111" {
		t.Errorf("got %q, want %q", acct.AccountID, "111")
	}
}

func TestSelectAccount_MultipleRequiresID(t *testing.T) {
	p := &Principals{Accounts: []Account{{AccountID: "111"}, {AccountID: "222"}}}
	if _, err := SelectAccount(p, ""); err == nil {
		t.Fatal("expected error when account_id is unspecified with multiple accounts")
	}
}

func TestSelectAccount_MultipleMatches(t *testing.T) {
	p := &Principals{Accounts: []Account{{AccountID: "111"}, {AccountID: "222"}}}
	acct, err := SelectAccount(p, "222")
	if err != nil {
		t.Fatalf("SelectAccount: %v", err)
	}
	if acct.AccountID != "222" {
		t.Errorf("got %q, want %q", acct.AccountID, "222")
	}
}

func TestSelectAccount_NoMatch(t *testing.T) {
	p := &Principals{Accounts: []Account{{AccountID: "111"}, {AccountID: "222"}}}
	if _, err := SelectAccount(p, "999"); err == nil {
		t.Fatal("expected error when account_id matches no account")
	}
}
