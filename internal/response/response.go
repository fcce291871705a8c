package response

// SuccessResponse is a plain acknowledgement.
type SuccessResponse struct {
	Message string `json:"message" example:"Queue is now open"`
}

// ErrorResponse is returned by every failing endpoint.
type ErrorResponse struct {
	// Machine-readable error code
	// example: EMPTY_QUEUE
	Code string `json:"code"`

	// Human-readable message
	// example: No one is waiting in the queue
	Message string `json:"message"`

	// Optional detail, usually the underlying error
	// example: queue: read front entry: connection refused
	Details string `json:"details,omitempty"`
}

// PartialSuccessResponse reports a mutation that was applied while a side effect failed.
// Warning is empty when everything went through.
type PartialSuccessResponse struct {
	Message string `json:"message" example:"Queue advanced"`
	Warning string `json:"warning,omitempty" example:"Queue advanced, but notification failed: sms: SMS service is not configured."`
}

// AdvanceResponse is the result of serving the front of the queue.
type AdvanceResponse struct {
	PartialSuccessResponse
	CurrentServing int `json:"currentServing" example:"6"`
	// ServedID is the entry taken off the front, empty when nobody was waiting.
	ServedID string `json:"servedId,omitempty" example:"3f1c9a3e-7a55-4d6c-9a8f-5b1e4f0d2c11"`
}

// NotifyResponse lists per-channel delivery results.
type NotifyResponse struct {
	PartialSuccessResponse
	Results []ChannelResult `json:"results"`
}

type ChannelResult struct {
	Channel string `json:"channel" example:"sms"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ResetResponse reports how many entries the reset closed out.
type ResetResponse struct {
	Message     string `json:"message" example:"Queue reset"`
	Deactivated int64  `json:"deactivated" example:"4"`
	ResetAt     string `json:"resetAt" example:"2025-03-14T21:00:00Z"`
}
