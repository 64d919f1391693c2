// Package session owns the single authenticated connection to the Edge Filer
// for the life of the process, and the middleware that keeps it usable.
//
// Session holds the connection and the credentials needed to re-authenticate.
// Run binds its lifetime to a caller-supplied function: login on entry,
// logout on every exit path. The session travels to tool handlers through the
// call context (NewContext / FromContext).
//
// Refresh wraps an operation so that a failure classified as a lost session
// (IsSessionExpired) triggers one login and exactly one retry. Any other
// failure is logged and returned unchanged.
package session
