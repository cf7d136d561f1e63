// Package account holds the cross-field rules for a user's authentication
// methods. A user must always retain at least one method: a local password
// or a linked OAuth provider.
package account

import "errors"

// Typed domain errors surfaced as 400-level codes by the HTTP layer.
var (
	// ErrLastAuthMethod blocks removing the user's only authentication method.
	ErrLastAuthMethod = errors.New("account: last auth method")
	// ErrNotLinked indicates the provider is not linked to the user.
	ErrNotLinked = errors.New("account: provider not linked")
	// ErrPasswordAlreadySet rejects setting a password when one exists.
	ErrPasswordAlreadySet = errors.New("account: password already set")
	// ErrNoPassword rejects changing or removing an absent password.
	ErrNoPassword = errors.New("account: no password set")
)

// Removal identifies which authentication method an action wants to drop.
type Removal int

const (
	// RemoveNone checks state without removing anything.
	RemoveNone Removal = iota
	// RemovePassword drops the local password.
	RemovePassword
	// RemoveOAuth drops one linked OAuth provider.
	RemoveOAuth
)

// CanRemove is the single guard for the at-least-one-auth-method invariant.
// It answers whether the requested removal leaves the user with a way to
// sign in, given the current (hasPassword, oauthCount) state.
func CanRemove(hasPassword bool, oauthCount int, removal Removal) error {
	switch removal {
	case RemovePassword:
		if !hasPassword {
			return ErrNoPassword
		}
		if oauthCount == 0 {
			return ErrLastAuthMethod
		}
	case RemoveOAuth:
		if oauthCount == 0 {
			return ErrNotLinked
		}
		if !hasPassword && oauthCount == 1 {
			return ErrLastAuthMethod
		}
	}
	return nil
}

// CanSetPassword reports whether a password may be set (as opposed to
// changed) in the current state.
func CanSetPassword(hasPassword bool) error {
	if hasPassword {
		return ErrPasswordAlreadySet
	}
	return nil
}
