package service

import "github.com/google/uuid"

// Identity selects which store backs a cart: the volatile session store for
// anonymous callers, the durable account store once authenticated.
type Identity struct {
	SessionToken  string
	AccountID     uuid.UUID
	Authenticated bool
}

func Anonymous(sessionToken string) Identity {
	return Identity{SessionToken: sessionToken}
}

func Authenticated(accountID uuid.UUID) Identity {
	return Identity{AccountID: accountID, Authenticated: true}
}

// Key is the storage identifier the cart is kept under.
func (i Identity) Key() string {
	if i.Authenticated {
		return i.AccountID.String()
	}
	return i.SessionToken
}
