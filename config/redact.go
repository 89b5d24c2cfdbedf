package config

import (
	"net/url"
	"strings"
)

// RedactedValue replaces secret material in introspection output.
const RedactedValue = "[REDACTED]"

// RedactedPassword replaces userinfo passwords inside DSN-like strings.
const RedactedPassword = "***REDACTED***"

// Redacted returns a deep copy of the config safe for management or
// introspection output: static credential values are replaced and the
// repository DSN has its userinfo password rewritten.
func (c *Config) Redacted() *Config {
	cp := *c

	if len(c.Credentials.Static) > 0 {
		static := make(map[string]string, len(c.Credentials.Static))
		for ref := range c.Credentials.Static {
			static[ref] = RedactedValue
		}
		cp.Credentials.Static = static
	}

	cp.Repository.DSN = RedactDSN(c.Repository.DSN)
	return &cp
}

// RedactDSN rewrites the userinfo password of a DSN-like string to
// ***REDACTED***. Strings without a parseable URL shape or without a
// password pass through unchanged.
func RedactDSN(dsn string) string {
	if dsn == "" || !strings.Contains(dsn, "://") {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), RedactedPassword)
	return u.String()
}
