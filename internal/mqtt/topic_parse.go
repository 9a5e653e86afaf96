package mqtt

import (
	"fmt"
	"strings"
)

// Topic is a parsed terminal topic.
type Topic struct {
	TerminalID string
	Kind       string
	// RequestID is set for prompt, reply, invoke and result topics.
	RequestID string
}

// expected: {prefix}/terminal/{terminalId}/{kind}[/{requestId}]
func ParseTopic(topic, prefix string) (Topic, error) {
	parts := strings.Split(topic, "/")
	prefixParts := strings.Split(prefix, "/")
	if len(parts) < len(prefixParts)+3 {
		return Topic{}, fmt.Errorf("invalid topic: %s", topic)
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return Topic{}, fmt.Errorf("topic prefix mismatch: %s", topic)
		}
	}
	rest := parts[len(prefixParts):]
	if rest[0] != "terminal" {
		return Topic{}, fmt.Errorf("invalid topic pattern: %s", topic)
	}
	if rest[1] == "" {
		return Topic{}, fmt.Errorf("empty terminal id: %s", topic)
	}
	out := Topic{TerminalID: rest[1], Kind: rest[2]}
	if len(rest) > 3 {
		out.RequestID = rest[len(rest)-1]
	}
	return out, nil
}

func ParseTerminalID(topic, prefix string) (string, error) {
	t, err := ParseTopic(topic, prefix)
	if err != nil {
		return "", err
	}
	return t.TerminalID, nil
}

func ParseRequestID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
