package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// IdempotencyKeyHeaderName is the gRPC metadata key (and, canonicalized, the
// HTTP header) carrying a client-chosen idempotency key.
const IdempotencyKeyHeaderName = "idempotency-key"
