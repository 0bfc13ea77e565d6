// Package identity is the identity-and-access core of the platform: it
// authenticates credentials, issues and validates bearer tokens, resolves
// role-to-permission sets, and drives the email verification workflow.
//
// Verification mail never blocks the request path. The workflow enqueues a
// job on a Queue and a Worker delivers it later through the Mailer, retrying
// with exponential backoff and propagating failures so delivery stays
// at-least-once.
//
// Authorization is a two step check: the guard validates the token signature
// and expiry, then re-fetches the account so deactivation takes effect on the
// next request rather than at token expiry. Permission keys embedded in the
// token are a snapshot taken at login.
package identity
