// Package reconcile applies processor webhook events to the store.
//
// Only customer.subscription.* and invoice.* events in the allow-list are
// applied; other types are acknowledged and ignored. Subscription events
// overwrite the processor-owned fields of the subscription document. Invoice
// events upsert the invoice projection with zero and null defaults, and a paid
// invoice also becomes the subscription's latest_invoice.
//
// Delivery is at least once. An optional Deduper short-circuits events that
// were already applied, but correctness never depends on it.
package reconcile
