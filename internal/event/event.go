// Package event defines the ingested alert record and its id scheme.
package event

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event is created once at ingestion and immutable afterwards.
// Payload keys are opaque to the pipeline; they are only rendered
// into the relayed message.
type Event struct {
	ID         string
	Payload    map[string]string
	SourceAddr string
	ReceivedAt time.Time
}

var idSeq atomic.Uint64

// NewID returns a process-unique event id.
//
// The id is a base36 millisecond timestamp plus a process-local
// sequence, so ids stay unique even when two ingestions land in the
// same millisecond.
func NewID(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	seq := strings.ToUpper(strconv.FormatUint(idSeq.Add(1), 36))
	return "EV_" + ts + "-" + seq
}
