package domain

import (
	"errors"
	"fmt"
	"strings"
)

// CredentialScheme prefixes every credential reference.
const CredentialScheme = "chatlink://"

// PasswordItem is the item a reference names when it only names an account.
const PasswordItem = "password"

var ErrInvalidCredentialRef = errors.New("invalid credential reference")

// CredentialRef names a secret owned by one account, written as
// chatlink://<account>/<item>. Items may span several path segments.
type CredentialRef struct {
	Account AccountID
	Item    string
}

func PasswordRef(id AccountID) CredentialRef {
	return CredentialRef{Account: id, Item: PasswordItem}
}

// ParseCredentialRef accepts the scheme form and the bare <account>/<item>
// form. Segments may not be empty, "." or "..".
func ParseCredentialRef(raw string) (CredentialRef, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), CredentialScheme)
	if trimmed == "" {
		return CredentialRef{}, fmt.Errorf("%w: reference is empty", ErrInvalidCredentialRef)
	}
	if strings.ContainsAny(trimmed, "\\\x00") {
		return CredentialRef{}, fmt.Errorf("%w: %q", ErrInvalidCredentialRef, raw)
	}

	segments := strings.Split(trimmed, "/")
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." {
			return CredentialRef{}, fmt.Errorf("%w: %q", ErrInvalidCredentialRef, raw)
		}
	}

	ref := CredentialRef{Account: AccountID(segments[0]), Item: strings.Join(segments[1:], "/")}
	if ref.Item == "" {
		ref.Item = PasswordItem
	}
	return ref, nil
}

// Path is the reference without its scheme, <account>/<item>.
func (r CredentialRef) Path() string {
	return string(r.Account) + "/" + r.Item
}

func (r CredentialRef) String() string {
	return CredentialScheme + r.Path()
}
