package checkout

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Credentials is the access grant generated once per fulfilled order.
// It is embedded in the order row as JSON and never regenerated.
type Credentials struct {
	Username   string     `json:"username"`
	Password   string     `json:"password"`
	ServiceURL string     `json:"service_url"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"` // set for trial-scoped credentials
	Trial      bool       `json:"trial,omitempty"`
	IssuedAt   time.Time  `json:"issued_at"`
}

// IsExpired returns true if the credentials carry an expiry in the past
func (c Credentials) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Value implements driver.Valuer for JSONB storage
func (c Credentials) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB retrieval
func (c *Credentials) Scan(value any) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into Credentials", value)
	}
}
