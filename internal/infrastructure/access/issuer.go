package access

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/streamvault/backend/internal/domain/checkout"
)

// Characters that read ambiguously in customer emails (0/O, 1/l/I) are
// excluded from generated credentials.
const (
	usernameAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

	usernamePrefix    = "sv_"
	usernameSuffixLen = 8
	passwordLen       = 14
)

// Issuer generates random service credentials backed by crypto/rand
type Issuer struct {
	now func() time.Time
}

var _ checkout.CredentialIssuer = (*Issuer)(nil)

// NewIssuer creates a new credential issuer
func NewIssuer() *Issuer {
	return &Issuer{now: time.Now}
}

// Issue generates a fresh username and password. Trial credentials carry an
// expiry; purchased credentials do not expire here, their lifecycle is
// managed by the subscription itself.
func (i *Issuer) Issue(req checkout.IssueRequest) (checkout.Credentials, error) {
	suffix, err := randomString(usernameAlphabet, usernameSuffixLen)
	if err != nil {
		return checkout.Credentials{}, fmt.Errorf("access: failed to generate username: %w", err)
	}

	password, err := randomString(passwordAlphabet, passwordLen)
	if err != nil {
		return checkout.Credentials{}, fmt.Errorf("access: failed to generate password: %w", err)
	}

	issuedAt := i.now()
	creds := checkout.Credentials{
		Username:   usernamePrefix + suffix,
		Password:   password,
		ServiceURL: req.ServiceURL,
		Trial:      req.Trial,
		IssuedAt:   issuedAt,
	}

	if req.Trial {
		duration := req.TrialDuration
		if duration <= 0 {
			duration = 36 * time.Hour
		}
		expiresAt := issuedAt.Add(duration)
		creds.ExpiresAt = &expiresAt
	}

	return creds, nil
}

// randomString draws n characters uniformly from the given alphabet
func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
