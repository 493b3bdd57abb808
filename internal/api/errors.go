package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type Kind int

const (
	// KindTransport: the request never completed.
	KindTransport Kind = iota + 1
	// KindStatus: the server answered with a non-2xx status.
	KindStatus
	// KindDecode: the response body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by every Client operation that fails.
type Error struct {
	Op         string
	Method     string
	Path       string
	Kind       Kind
	StatusCode int
	// Detail is the server's explanation, when it sent one.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s", e.Op, e.Method, e.Path)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// GenericMessage is shown when the server gave no detail.
const GenericMessage = "Please try again."

// Message returns the user-facing part of err: the server detail when present.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return GenericMessage
	}
	return err.Error()
}

func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// detailFrom extracts `detail` from an error body. A string is used as is; a list of
// validation entries is joined from their `msg` fields.
func detailFrom(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	d := gjson.GetBytes(body, "detail")
	switch {
	case !d.Exists():
		return ""
	case d.IsArray():
		msgs := make([]string, 0, 2)
		for _, it := range d.Array() {
			msg := strings.TrimSpace(it.Get("msg").String())
			if msg == "" && it.Type == gjson.String {
				msg = it.String()
			}
			if msg == "" {
				continue
			}
			if loc := it.Get("loc").Array(); len(loc) > 0 {
				msg = loc[len(loc)-1].String() + ": " + msg
			}
			msgs = append(msgs, msg)
		}
		return strings.Join(msgs, "; ")
	case d.Type == gjson.String:
		return strings.TrimSpace(d.String())
	default:
		return strings.TrimSpace(d.Raw)
	}
}
