// Package issues defines the issue data model shared by the synchronization
// engine, the issue source, the stores, and the display path.
//
// A Summary is what the issue tracker reports for one open issue. A Record is
// the durable form of a Summary once a tick has processed it: it adds the
// LastProcessed stamp and is keyed by Number in the store. A Batch is the
// ordered, tick-scoped set of Records built by one tick and committed as a
// single upsert.
package issues
