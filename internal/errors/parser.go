package errors

import (
	"github.com/evanw/esbuild/pkg/api"
)

// FromMessages converts esbuild diagnostics into structured errors.
//
// Each message becomes one *Error of the given type carrying the message's
// file location. The plugin name, when esbuild reports one, is kept in the
// error context. It returns nil when msgs is empty.
func FromMessages(errType ErrorType, code string, msgs []api.Message) error {
	collection := &ErrorCollection{}

	for _, msg := range msgs {
		collection.Add(FromMessage(errType, code, msg))
	}

	return collection.ErrorOrNil()
}

// FromMessage converts a single esbuild diagnostic.
func FromMessage(errType ErrorType, code string, msg api.Message) *Error {
	e := &Error{
		Type:    errType,
		Code:    code,
		Message: msg.Text,
	}

	if msg.Location != nil {
		// esbuild columns are 0-based byte offsets
		e.WithLocation(msg.Location.File, msg.Location.Line, msg.Location.Column+1)
		if msg.Location.LineText != "" {
			e.WithContext("line_text", msg.Location.LineText)
		}
	}

	if msg.PluginName != "" {
		e.WithContext("plugin", msg.PluginName)
	}

	if cause, ok := msg.Detail.(error); ok {
		e.Cause = cause
	}

	return e
}
