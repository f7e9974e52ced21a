// Package envelope builds outgoing request frames and classifies incoming
// frames into the three disjoint shapes the gateway can send: response,
// data, and notify.
package envelope

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/alexgolec/td-ameritrade-api/fields"
)

// Request is a single entry of an outgoing "requests" frame.
type Request struct {
	Service    fields.ServiceID  `json:"service"`
	Command    string            `json:"command"`
	RequestID  string            `json:"requestid"`
	Account    string            `json:"account"`
	Source     string            `json:"source"`
	Parameters map[string]string `json:"parameters"`
}

// BuildRequest serialises a single request into the wire's outer
// "requests" envelope. Request ids are carried as decimal strings.
func BuildRequest(service fields.ServiceID, command string, requestID uint64, account, source string, parameters map[string]string) ([]byte, error) {
	req := Request{
		Service:    service,
		Command:    command,
		RequestID:  strconv.FormatUint(requestID, 10),
		Account:    account,
		Source:     source,
		Parameters: parameters,
	}
	return json.Marshal(struct {
		Requests []Request `json:"requests"`
	}{Requests: []Request{req}})
}

// Kind identifies which of the three mutually exclusive frame shapes was
// classified.
type Kind int

const (
	KindMalformed Kind = iota
	KindResponse
	KindData
	KindNotify
)

// ResponseEntry is one element of a Response frame's "response" array.
type ResponseEntry struct {
	Service   string          `json:"service"`
	Command   string          `json:"command"`
	RequestID string          `json:"requestid"`
	Timestamp int64           `json:"timestamp"`
	Content   ResponseContent `json:"content"`
}

// ResponseContent carries the acknowledgement code and message.
type ResponseContent struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// DataEntry is one element of a Data frame's "data" array.
type DataEntry struct {
	Service   string           `json:"service"`
	Command   string           `json:"command"`
	Timestamp int64            `json:"timestamp"`
	Content   []map[string]any `json:"content"`
}

// Frame is the result of classifying an inbound wire message: exactly one
// of Response, Data is populated depending on Kind; Notify frames carry no
// structured payload the core cares about.
type Frame struct {
	Kind     Kind
	Response []ResponseEntry
	Data     []DataEntry
}

// wireFrame mirrors the three possible top-level shapes so unmarshalling
// can detect which keys are present without losing precision on unknown
// ones.
type wireFrame struct {
	Response json.RawMessage `json:"response"`
	Data     json.RawMessage `json:"data"`
	Notify   json.RawMessage `json:"notify"`
}

// Classify parses a raw inbound frame and determines its kind. A frame
// carrying more than one of response/data/notify, or none of them, is
// Malformed.
func Classify(raw []byte) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal(raw, &w); err != nil {
		return Frame{Kind: KindMalformed}, fmt.Errorf("envelope: invalid JSON: %w", err)
	}

	present := 0
	if w.Response != nil {
		present++
	}
	if w.Data != nil {
		present++
	}
	if w.Notify != nil {
		present++
	}
	if present != 1 {
		return Frame{Kind: KindMalformed}, nil
	}

	switch {
	case w.Response != nil:
		var entries []ResponseEntry
		if err := json.Unmarshal(w.Response, &entries); err != nil {
			return Frame{Kind: KindMalformed}, fmt.Errorf("envelope: invalid response frame: %w", err)
		}
		return Frame{Kind: KindResponse, Response: entries}, nil
	case w.Data != nil:
		var entries []DataEntry
		if err := json.Unmarshal(w.Data, &entries); err != nil {
			return Frame{Kind: KindMalformed}, fmt.Errorf("envelope: invalid data frame: %w", err)
		}
		return Frame{Kind: KindData, Data: entries}, nil
	default:
		return Frame{Kind: KindNotify}, nil
	}
}
