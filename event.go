package main

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

type EventKind int

const (
	EventUnknown EventKind = iota
	EventCreated
	EventDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "Created"
	case EventDeleted:
		return "Deleted"
	}
	return "Unknown"
}

// ParseEventKind resolves both the CloudTrail event names and the short
// forms. Anything else is EventUnknown.
func ParseEventKind(s string) EventKind {
	switch s {
	case "CreateQueue", "Created":
		return EventCreated
	case "DeleteQueue", "Deleted":
		return EventDeleted
	}
	return EventUnknown
}

// snsEnvelope is the subset of the SNS notification wrapper we care about.
type snsEnvelope struct {
	Message string `json:"Message"`
}

// QueueEvent is a CreateQueue/DeleteQueue API call recorded by CloudTrail
// and delivered through EventBridge.
type QueueEvent struct {
	DetailType string           `json:"detail-type"`
	Region     string           `json:"region"`
	Detail     QueueEventDetail `json:"detail"`
}

type QueueEventDetail struct {
	EventName         string `json:"eventName"`
	ErrorCode         string `json:"errorCode"`
	RequestParameters struct {
		QueueName string `json:"queueName"`
		QueueURL  string `json:"queueUrl"`
	} `json:"requestParameters"`
}

// ParseQueueEvent decodes an SNS-wrapped EventBridge record from an SQS
// message body.
func ParseQueueEvent(body string) (*QueueEvent, error) {
	var env snsEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, errors.WithStack(err)
	}
	if env.Message == "" {
		return nil, errors.New("message is not an SNS notification")
	}

	var e QueueEvent
	if err := json.Unmarshal([]byte(env.Message), &e); err != nil {
		return nil, errors.WithStack(err)
	}

	return &e, nil
}

func (e *QueueEvent) Kind() EventKind {
	return ParseEventKind(e.Detail.EventName)
}

// Failed reports whether CloudTrail recorded the API call as rejected.
// Failed calls never changed queue state and are skipped.
func (e *QueueEvent) Failed() bool {
	return e.Detail.ErrorCode != ""
}

// QueueName returns the queue name from the request parameters. DeleteQueue
// records carry queueUrl instead of queueName, so fall back to the last URL
// path segment.
func (e *QueueEvent) QueueName() string {
	if e.Detail.RequestParameters.QueueName != "" {
		return e.Detail.RequestParameters.QueueName
	}
	u := e.Detail.RequestParameters.QueueURL
	if u == "" {
		return ""
	}
	parts := strings.Split(strings.TrimRight(u, "/"), "/")
	return parts[len(parts)-1]
}
