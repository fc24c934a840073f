package config

// CredentialSource holds the API credentials known to a session.
// Resolve tries them in Precedence order: the environment default first,
// then the key the user typed in. Neither is ever written to disk.
type CredentialSource struct {
	Default  string
	Override string
}

// Precedence lists the candidate credentials in the order they are tried.
func (s CredentialSource) Precedence() []string {
	return []string{s.Default, s.Override}
}

// Resolve returns the first non-empty credential, or "" when none is available.
func (s CredentialSource) Resolve() string {
	for _, key := range s.Precedence() {
		if key != "" {
			return key
		}
	}
	return ""
}

// WithOverride returns a copy of the source carrying a user-supplied key.
func (s CredentialSource) WithOverride(key string) CredentialSource {
	s.Override = key
	return s
}
