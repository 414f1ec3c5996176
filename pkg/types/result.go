package types

// ActionResultStatus is the outcome of one mutation operation.
type ActionResultStatus string

const (
	ActionSuccess ActionResultStatus = "SUCCESS"
	ActionFail    ActionResultStatus = "FAIL"
)

// ActionResult is the sole return contract of every worklog mutation.
// MessageKey plus Params are resolved to user-facing text by the
// presentation layer; the core never localizes.
type ActionResult struct {
	Status     ActionResultStatus `json:"status"`
	MessageKey string             `json:"message_key"`
	Params     []string           `json:"params,omitempty"`
}

// SuccessResult builds a SUCCESS result for the given message key.
func SuccessResult(messageKey string, params ...string) ActionResult {
	return ActionResult{Status: ActionSuccess, MessageKey: messageKey, Params: params}
}

// FailResult builds a FAIL result for the given message key.
func FailResult(messageKey string, params ...string) ActionResult {
	return ActionResult{Status: ActionFail, MessageKey: messageKey, Params: params}
}

// Failed reports whether the operation was rejected.
func (r ActionResult) Failed() bool {
	return r.Status == ActionFail
}
