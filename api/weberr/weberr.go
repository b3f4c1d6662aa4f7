// Package weberr attaches behaviors to errors through wrapping: a
// client-facing response, structured log fields, or both. Handlers
// return plain errors and the Errors middleware inspects the chain.
package weberr

// Opt decorates an error with an additional behavior.
type Opt func(error) error

// Wrap applies every option to err in order.
func Wrap(err error, opts ...Opt) error {
	for _, opt := range opts {
		err = opt(err)
	}
	return err
}

// WithResponse attaches the body and status the client should receive.
func WithResponse(body any, status int) Opt {
	return func(err error) error {
		return &responseError{error: err, body: body, status: status}
	}
}

// WithFields attaches fields for the Errors middleware to log.
func WithFields(fields map[string]any) Opt {
	return func(err error) error {
		return &fieldsError{error: err, fields: fields}
	}
}
