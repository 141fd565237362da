package common

// AuthorizationHeaderName is the HTTP header carrying the access token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme prefixes the access token inside the Authorization header.
const BearerScheme = "Bearer"

// RequestIDHeaderName is the HTTP header used to propagate request ids.
const RequestIDHeaderName = "X-Request-ID"
