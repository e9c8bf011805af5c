package domain

import "time"

// TrustRecord associates a trusted source IP with the identity that
// granted it. At most one record exists per identity; granting a new IP
// supersedes the identity's previous record.
type TrustRecord struct {
	Identity   string     `json:"identity" db:"identity"`
	IP         string     `json:"ip" db:"ip"`
	CreatedAt  time.Time  `json:"created" db:"created_at"`
	ModifiedAt *time.Time `json:"modified,omitempty" db:"modified_at"`
}
