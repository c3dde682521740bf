package chrome

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrProtocolError    = errors.New("protocol error")
	ErrNoPages          = errors.New("no pages available")
)

// ProtocolError represents an error returned by the Chrome DevTools Protocol.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolError
}

// ExceptionError is returned when evaluated script throws.
type ExceptionError struct {
	Text        string
	Description string
	LineNumber  int
}

func (e *ExceptionError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("JS exception: %s", e.Description)
	}
	return fmt.Sprintf("JS exception: %s", e.Text)
}

// TargetInfo contains information about a browser target (tab/page).
type TargetInfo struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NavigateResult contains the result of a navigation.
type NavigateResult struct {
	FrameID   string `json:"frameId"`
	LoaderID  string `json:"loaderId,omitempty"`
	URL       string `json:"url"`
	ErrorText string `json:"errorText,omitempty"`
}

// RemoteObject is the subset of Runtime.RemoteObject needed to read back
// evaluated values.
type RemoteObject struct {
	Type                string          `json:"type"`
	Subtype             string          `json:"subtype,omitempty"`
	Value               json.RawMessage `json:"value,omitempty"`
	UnserializableValue string          `json:"unserializableValue,omitempty"`
	Description         string          `json:"description,omitempty"`
}

type exceptionDetails struct {
	Text       string        `json:"text"`
	LineNumber int           `json:"lineNumber"`
	Exception  *RemoteObject `json:"exception,omitempty"`
}

func (d *exceptionDetails) err() error {
	e := &ExceptionError{Text: d.Text, LineNumber: d.LineNumber}
	if d.Exception != nil {
		e.Description = d.Exception.Description
	}
	return e
}
