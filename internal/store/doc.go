// Package store provides persistent storage for omnichat using SQLite.
//
// # Data Models
//
// Core models:
//
//   - User: Chat participant with username, email, and presence status
//   - Conversation: Named room with a participant list and a rolling
//     last-message summary
//   - Message: Individual message with sender, content, and type
//     (text, ai_response, system)
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The schema is created automatically on store initialization.
//
// # Timestamps
//
// Timestamps are stored as fixed-width UTC text with nanosecond precision,
// so lexical comparison in SQL matches chronological order. This is what
// makes the monotonic last_activity guard in UpdateConversationSummary a
// single UPDATE statement.
//
// # Error Handling
//
// ErrNotFound is returned when a requested entity does not exist. All
// methods accept context.Context for cancellation support.
package store
