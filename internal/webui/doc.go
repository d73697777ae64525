// ABOUTME: Package documentation for the browser UI and JSON API
// ABOUTME: Covers sessions, CSRF, rendering rules, and export formats

// Package webui serves the browser study-chat interface and a small
// JSON API for non-browser clients.
//
// # Browser Surface
//
// Server-rendered html/template pages with synchronous form posts:
// login, register, chat (transcript plus input form), per-message
// delete, clear history, and TXT/PDF transcript downloads. Sessions
// use an opaque cookie backed by the sessions table; state-changing
// posts carry a CSRF double-submit token.
//
// # Rendering
//
// Assistant replies are rendered from markdown. User messages are
// HTML-escaped and shown verbatim.
//
// # JSON API
//
// POST /api/login exchanges credentials for a JWT. POST /api/chat and
// GET /api/history require a bearer token and mirror the browser
// operations.
package webui
