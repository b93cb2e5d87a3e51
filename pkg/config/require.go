package config

import (
	"errors"
	"log"
)

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// AdminSecretsError reports a missing admin secret outside development.
func (c Config) AdminSecretsError() error {
	if c.IsDevelopment() {
		return nil
	}
	if len(c.AdminSessionSecret) == 0 {
		return errors.New("missing required env ADMIN_SESSION_SECRET")
	}
	if c.AdminPasscode == "" && c.AdminPasscodeHash == "" {
		return errors.New("missing required env ADMIN_PASSCODE or ADMIN_PASSCODE_HASH")
	}
	return nil
}

// MustAdminSecrets stops the process when the admin surface would be
// unusable or unsigned.
func (c Config) MustAdminSecrets() {
	if err := c.AdminSecretsError(); err != nil {
		log.Fatal(err)
	}
}
