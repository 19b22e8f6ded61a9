// Package reconcile turns inbound device telemetry into persisted state,
// history entries, owner notifications and realtime broadcasts.
//
// Messages flow through a fixed sequence:
//
//	Ingress -> Classifier -> Store.Reconcile -> DetectChanges -> ResolveAction
//	        -> history append (+ alarm notification) -> Broadcast
//
// Ingress drains a bounded queue with a single worker, so each message's
// side effects are issued before the next message is read. A persistence
// failure aborts that message; every later side effect is best-effort and
// only logged.
package reconcile
