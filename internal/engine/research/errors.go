package research

import (
	"errors"
	"fmt"
)

// TransientExternalError wraps a network, quota or timeout failure from
// search, transcript or model calls. The unit of work is skipped.
type TransientExternalError struct {
	Op  string
	Err error
}

func (e *TransientExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientExternalError) Unwrap() error { return e.Err }

// MalformedResponseError reports model output that does not match the
// expected structure.
type MalformedResponseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Reason, e.Err)
	}
	return "malformed model response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ConfigError reports a missing collaborator or credential. It is returned
// before any work begins.
type ConfigError struct {
	Component string
	Msg       string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Component, e.Msg)
}

// IsTransient reports whether err is a TransientExternalError.
func IsTransient(err error) bool {
	var te *TransientExternalError
	return errors.As(err, &te)
}

// IsMalformed reports whether err is a MalformedResponseError.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
