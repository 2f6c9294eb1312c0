package domain

// ExternalProfile is what an identity provider tells us about a user after
// a successful sign in.
type ExternalProfile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
