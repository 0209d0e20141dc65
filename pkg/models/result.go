package models

import "encoding/json"

// ResultStatus is the top-level status of an operation result.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
)

// ResultError is the error element of an OperationResult. Output carries
// whatever the device produced before an execution failure, when any.
type ResultError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Output  string    `json:"output,omitempty"`
}

// OperationResult is the contract returned to every caller: exactly one of
// Data (status "ok") or Error (status "error") is set. Callers branch on
// Status alone; no operation deviates from this shape.
type OperationResult struct {
	Status ResultStatus `json:"status"`
	Data   interface{}  `json:"data,omitempty"`
	Error  *ResultError `json:"error,omitempty"`
}

// OK builds a successful result carrying the operation payload.
func OK(data interface{}) *OperationResult {
	return &OperationResult{Status: StatusOK, Data: data}
}

// Failure builds an error result.
func Failure(kind ErrorKind, message string) *OperationResult {
	return &OperationResult{
		Status: StatusError,
		Error:  &ResultError{Kind: kind, Message: message},
	}
}

// FailureFrom converts an error into an error result. OpError values keep
// their kind and partial output; anything else is reported as an
// execution failure.
func FailureFrom(err error) *OperationResult {
	if op, ok := AsOpError(err); ok {
		return &OperationResult{
			Status: StatusError,
			Error:  &ResultError{Kind: op.Kind, Message: op.Message, Output: op.Output},
		}
	}
	return Failure(KindExecutionError, err.Error())
}

// JSON renders the result for the wire.
func (r *OperationResult) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// ShowData is the payload of a successful show operation.
type ShowData struct {
	Device  string `json:"device"`
	Command string `json:"command"`
	Output  string `json:"output"`
}

// ConfigData is the payload of a successful configure operation.
type ConfigData struct {
	Device          string   `json:"device"`
	CommandsApplied []string `json:"commands_applied"`
	Output          string   `json:"output"`
}

// PingData is the payload of a successful ping operation.
type PingData struct {
	Device string `json:"device"`
	Target string `json:"target"`
	Output string `json:"output"`
}

// DevicesData is the payload of a list-devices operation.
type DevicesData struct {
	Devices map[string]DeviceInfo `json:"devices"`
}
