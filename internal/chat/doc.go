// ABOUTME: Package documentation for the chat turn service
// ABOUTME: Describes the turn lifecycle and transcript assembly rules

// Package chat orchestrates tutoring turns between the message store and
// the completion API.
//
// # Turn Lifecycle
//
// A turn is one user message and one assistant reply, both persisted.
// ProcessTurn saves the user message first, assembles the request
// (system instruction, then transcript in ascending id order), calls the
// completion API exactly once, and saves whatever comes back. If the API
// call fails, a placeholder assistant message describing the error is
// saved instead, so the transcript always gains a message pair per turn.
//
// # History Window
//
// The forwarded transcript can be bounded to the most recent N messages
// to keep request payloads from growing without limit. The bound applies
// only to what is sent to the API; the store keeps everything.
package chat
