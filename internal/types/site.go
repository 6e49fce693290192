package types

import "time"

// Site is a registered water body under recurring monitoring. The poller
// re-analyzes every active site on its schedule; ad-hoc analyses of
// unregistered coordinates carry no site ID.
type Site struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Location  Location  `json:"location" db:"-"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
