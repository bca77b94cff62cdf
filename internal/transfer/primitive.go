package transfer

// Primitive is a non-blocking network operation started on construction.
// It must tolerate being queried every tick until it is done or failed.
type Primitive interface {
	// IsDone reports whether the operation completed.
	IsDone() bool
	// Err is empty unless the operation failed.
	Err() string
	// Bytes returns the response body once done. The caller must not retain
	// the slice past Dispose.
	Bytes() ([]byte, error)
	ResponseHeaders() map[string]string
	// Dispose releases the resources held by the operation.
	Dispose()
}

// statusCoder is implemented by primitives that know the response status.
type statusCoder interface {
	StatusCode() int
}

// Factory creates a started primitive sending body to url.
type Factory func(url string, body []byte) Primitive
