package credential

import (
	"context"
	"os"
	"strings"
)

// envPrefix namespaces environment-backed credentials.
const envPrefix = "OAGW_CRED_"

// EnvResolver maps "cred://openai-key" to the OAGW_CRED_OPENAI_KEY
// environment variable.
type EnvResolver struct{}

// NewEnvResolver creates an environment-variable backed resolver.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

// Resolve implements Resolver.
func (r *EnvResolver) Resolve(_ context.Context, secretRef string) (Secret, error) {
	v, ok := os.LookupEnv(envVarName(secretRef))
	if !ok {
		return Secret{}, NotFoundError(secretRef)
	}
	return NewSecret(v), nil
}

func envVarName(secretRef string) string {
	name := strings.TrimPrefix(secretRef, "cred://")
	name = strings.ToUpper(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	return envPrefix + name
}
