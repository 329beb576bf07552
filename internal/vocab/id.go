package vocab

import "github.com/oklog/ulid/v2"

// NewID returns a new ULID string. IDs from one process are strictly
// increasing, so they sort by creation order.
func NewID() string {
	return ulid.Make().String()
}
