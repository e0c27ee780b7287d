// Package relay fans one ingested event out to the primary chat plus
// every active subscriber.
//
// Delivery is sequential and best-effort: each send is bounded by a
// timeout and rate-limited, and a failure for one recipient never
// aborts delivery to the recipients after it.
package relay
