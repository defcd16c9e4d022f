package core

// Result is the uniform envelope returned across the public boundary.
type Result[T any] struct {
	Success  bool     `json:"success"`
	Data     T        `json:"data,omitempty"`
	Message  string   `json:"message,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// NewResult wraps data and err. A nil err yields a successful result.
func NewResult[T any](data T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Result[T]{Success: true, Data: data}
}

func Failure[T any](err error) Result[T] {
	return Result[T]{
		Success:  false,
		Message:  err.Error(),
		Messages: Messages(err),
	}
}
