// Package ids generates identifiers for board entities.
package ids

import (
	"strconv"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// New returns a new ULID string. ULIDs sort by creation time, which keeps
// audit entries and notifications naturally ordered.
func New() string {
	return ulid.Make().String()
}

// Generator produces identifiers. Components accept one so tests can supply
// deterministic ids.
type Generator func() string

// Sequence returns a Generator yielding prefix-1, prefix-2, ...
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(n.Add(1), 10)
	}
}
