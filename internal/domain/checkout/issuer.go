package checkout

import "time"

// IssueRequest describes the credentials to generate for an order
type IssueRequest struct {
	OrderCode     string
	ServiceURL    string
	Trial         bool
	TrialDuration time.Duration
}

// CredentialIssuer generates service access credentials. Issuance is
// at most once per order; the repository's conditional attach enforces that,
// the issuer itself is stateless.
type CredentialIssuer interface {
	Issue(req IssueRequest) (Credentials, error)
}
