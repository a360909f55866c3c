// Package history records completed actuation invocations in SQLite.
//
// Every invocation lands here regardless of outcome, so the audit trail
// shows failures and confirmed no-ops alongside real transitions. The
// repository is append-mostly; pruning keeps the file bounded on
// long-running deployments.
package history
