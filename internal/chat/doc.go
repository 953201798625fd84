// Package chat implements the message pipeline and presence services.
//
// # Pipeline
//
// Every message, regardless of producer (REST client, AI responder, system),
// flows through Pipeline.Submit:
//
//  1. Validate the draft and check the conversation exists
//  2. Assign id and timestamp if the caller did not
//  3. Persist the message
//  4. Update the conversation's preview and last_activity
//  5. Broadcast new_message to the conversation's room
//
// Persistence always precedes broadcast: a message that was delivered live
// is guaranteed to be in history. The reverse does not hold — if the
// summary update fails, the message is durable but nothing is broadcast.
//
// # Presence
//
// Presence handles the transient signals: typing indicators fan out to the
// message's room minus the originator and are never persisted; user status
// changes are written to the store and then announced to every connection.
package chat
