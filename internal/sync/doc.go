// Package sync implements the issue synchronization tick.
//
// A tick moves through a fixed sequence of states:
//
//	START → READ_WATERMARK → PAGINATE → FILTER → DISPATCH → COMMIT → DONE
//
// with ABORT reachable from READ_WATERMARK and PAGINATE, and from FILTER when
// the tick is cancelled before any side effect was issued.
//
// # Watermark and pagination
//
// The watermark W is read once and held for the whole tick. Pages are walked
// newest-created first; the first issue created at or before W ends the scan
// entirely, so no later page is fetched. Issues seen twice because a page
// boundary shifted are kept once.
//
// # Dispatch
//
// Every candidate not authored by an internal author gets one notification and
// one comment attempt. The two calls are independent, and a failure of either
// is logged without affecting other candidates or the commit. Once dispatch has
// started the tick runs to the commit on a context detached from cancellation;
// each outbound call is still bounded by its own timeout.
//
// # Commit
//
// The whole batch, internal candidates included, is written in one upsert with
// last_processed set to the tick time. A failed commit leaves the watermark
// unchanged, so the next tick sees the same candidates again and re-notifies
// them. Delivery of notifications and comments is at-least-once.
//
// # Single flight
//
// An Engine runs at most one tick at a time. Tick returns ErrTickInProgress
// when called while another tick is running.
package sync
