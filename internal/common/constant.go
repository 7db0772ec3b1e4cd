package common

// AuthHeaderName is the HTTP header used to carry the access token on
// outbound requests.
const AuthHeaderName = "Authorization"

// TimestampLayout is the wire format for record timestamps. Millisecond
// precision with a fixed width, matching Date.toISOString output, so that
// lexicographic and chronological ordering agree for UTC values.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
