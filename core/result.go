package core

// Result is the uniform outcome of an orchestrator call as seen by callers
// that must not handle Go errors directly, such as HTTP handlers.
type Result[T any] struct {
	Success    bool           `json:"success"`
	Data       *T             `json:"data,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	Message    string         `json:"message,omitempty"`
	HTTPStatus int            `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ResultOf folds a (value, error) pair into a Result. Unstructured errors are
// mapped through the default error mapper first.
func ResultOf[T any](value T, err error) Result[T] {
	if err != nil {
		mapped := errorMapper(err)
		return Result[T]{
			Success:    false,
			ErrorCode:  mapped.TextCode,
			Message:    mapped.Message,
			HTTPStatus: mapped.Code,
			Metadata:   copyAnyMap(mapped.Metadata),
		}
	}
	return Result[T]{Success: true, Data: &value, HTTPStatus: 200}
}
