package session

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

func (a *Authenticator) PasscodeConfigured() bool {
	return len(a.passcode) > 0 || len(a.passcodeHash) > 0
}

func (a *Authenticator) CheckPasscode(input string) bool {
	if len(a.passcodeHash) > 0 {
		return bcrypt.CompareHashAndPassword(a.passcodeHash, []byte(input)) == nil
	}
	if len(a.passcode) == 0 {
		return false
	}

	in := []byte(input)
	if len(in) != len(a.passcode) {
		return false
	}
	return subtle.ConstantTimeCompare(in, a.passcode) == 1
}

func HashPasscode(passcode string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
