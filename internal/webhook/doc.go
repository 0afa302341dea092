// Package webhook receives CRM webhook calls and appends them to the event log.
//
// # Security Model
//
// - Verification is enabled by configuring a shared secret; without one every
//   call is accepted (the CRM may not sign requests for private apps)
// - HMAC-SHA256 over the exact raw body, compared with crypto/subtle
// - Missing or wrong signatures get a generic 401 and nothing is written
// - Body size is capped before any hashing happens
// - Payloads are only logged at debug level
//
// # Request Flow
//
//  1. POST arrives at /webhook
//  2. Body read up to MaxBodySize (413 beyond it)
//  3. If a secret is set: signature header extracted and verified (401 on failure)
//  4. Body parsed as JSON (400 when it is not)
//  5. {"ts": ..., "data": <payload>} appended to the event log (500 on failure)
//  6. 200 {"status":"ok"}
//
// # Signature Formats
//
// The header value may be plain hex or "sha256=<hex>".
//
//	sig := webhook.Sign(body, secret)
//	req.Header.Set("X-HubSpot-Signature", sig)
package webhook
