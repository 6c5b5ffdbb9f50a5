// Package outbox implements a transactional outbox over PostgreSQL.
//
// Producers call Publish inside the same transaction that mutates their
// aggregate, so an event row exists exactly when the state change committed.
// Dispatchers poll the table, claim pending rows with FOR UPDATE SKIP LOCKED
// and hand them to a Sink; rows are stamped published in the same
// transaction as the claim, which makes delivery at-least-once and lets any
// number of dispatchers share one table without double-sending.
package outbox
