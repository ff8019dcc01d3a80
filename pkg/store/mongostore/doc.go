// Package mongostore implements store.Store on MongoDB.
//
// Collections: subscriptions (keyed by processor subscription id), invites
// (uuid keys), invoices (processor invoice id, scoped by subscription_id) and
// users (identity uid). Call EnsureIndexes once at startup.
package mongostore
