// Package store provides persistent storage for tutormate using SQLite.
//
// # Data Models
//
//   - User: Registered account with a bcrypt password verifier
//   - Message: Immutable transcript entry (system/user/assistant) owned by a user
//   - Session: Cookie-backed browser session
//
// # Invariants
//
// Message ids are assigned by SQLite AUTOINCREMENT, so for any user the
// ascending id order returned by ListMessages equals chronological order.
// DeleteMessage is scoped to (id, username): a user can never delete
// another user's message even though ids are globally unique.
//
// Messages reference users(username) with foreign keys enabled, so a
// transcript entry can only be created for an existing account. Accounts
// are never deleted, so no orphan handling is needed.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Each operation is a single statement; no multi-statement transactions
// span a chat turn. Use NewSQLiteStore(":memory:") in tests.
package store
