package roomlink

// Protocol error codes. These travel on the wire inside error bodies and
// termination notices, so their spelling is frozen (including the historical
// "missingReciever" typo clients already match on).
const (
	CodeInvalidRoom     = "invalidRoom"
	CodeUnverified      = "unverified"
	CodeUnknownFailure  = "unknownFailure"
	CodeAuthTimeout     = "authTimeout"
	CodeInvalidJSON     = "invalidJSON"
	CodeRateLimited     = "rateLimited"
	CodeRateExceeded    = "rateExceeded"
	CodeAuthMismatch    = "authMismatch"
	CodeMissingRequired = "missingRequired"
	CodeAppIDMismatch   = "appIDMismatch"
	CodeInvalidPassword = "invalidPassword"
	CodeAuthFailed      = "authFailed"
	CodeInvalidClient   = "invalidClient"
	CodeInvalidAction   = "invalidAction"
	CodeMissingReciever = "missingReciever"
	CodeHostKick        = "hostKick"
	CodeHostDisconnect  = "hostDisconnect"
)

// Canonical human-readable messages paired with the codes above.
const (
	MsgInvalidRoom     = "Invalid room id"
	MsgUnverified      = "Room hasn't been verified"
	MsgUnknownFailure  = "Connection failed for unknown reason"
	MsgAuthTimeout     = "Auth not provided in time"
	MsgInvalidJSON     = "Message was not valid JSON"
	MsgRateLimited     = "Message rate limit hit, message dropped"
	MsgRateExceeded    = "rate limit exceeded"
	MsgAuthMismatch    = "Provided auth does not match room auth"
	MsgMissingRequired = "Either auth key or appID (or both) weren't provided"
	MsgAppIDMismatch   = "appID doesn't match"
	MsgInvalidPassword = "Password is incorrect"
	MsgAuthFailed      = "Unexpected authentication fail"
	MsgInvalidClient   = "No client with that id exists in this room"
	MsgInvalidAction   = "Unknown system action"
	MsgMissingReciever = "Message must include a reciever"
	MsgHostKick        = "Kicked by host"
	MsgHostDisconnect  = "Host disconnected"
)

// Wire event names used in notices and system payloads.
const (
	EventConnect      = "connect"
	EventJoin         = "join"
	EventAuthenticate = "authenticate"
	EventMessage      = "message"
	EventDisconnect   = "disconnect"
	EventDisconnected = "disconnected"
)

// Reserved sender names on relayed envelopes.
const (
	SenderSystem = "system"
	SenderHost   = "host"
	SenderClient = "client"
)
