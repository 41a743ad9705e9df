package mqtiny

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MatchTopic checks if a topic name matches a topic filter with MQTT wildcards.
// Supports:
// - '+' matches a single level
// - '#' matches multiple levels (must be last character), including the parent level
func MatchTopic(filter, topic string) bool {
	// MQTT-4.7.2-1: filters starting with a wildcard do not match topic
	// names beginning with '$'.
	if len(topic) > 0 && topic[0] == '$' {
		if len(filter) > 0 && (filter[0] == '+' || filter[0] == '#') {
			return false
		}
	}

	fIdx := 0
	tIdx := 0
	fLen := len(filter)
	tLen := len(topic)

	for fIdx <= fLen {
		var fLevel string
		var fNext int

		// Find next level in filter
		if idx := strings.IndexByte(filter[fIdx:], '/'); idx >= 0 {
			fNext = fIdx + idx
			fLevel = filter[fIdx:fNext]
		} else {
			fNext = fLen
			fLevel = filter[fIdx:]
		}

		if fLevel == "#" {
			// Multi-level wildcard matches everything remaining (including nothing)
			return true
		}

		// Check if we've run out of topic levels
		if tIdx > tLen {
			return false
		}

		var tLevel string
		var tNext int

		if idx := strings.IndexByte(topic[tIdx:], '/'); idx >= 0 {
			tNext = tIdx + idx
			tLevel = topic[tIdx:tNext]
		} else {
			tNext = tLen
			tLevel = topic[tIdx:]
		}

		if fLevel != "+" && fLevel != tLevel {
			return false
		}

		if fNext == fLen {
			fIdx = fLen + 1
		} else {
			fIdx = fNext + 1
		}

		if tNext == tLen {
			tIdx = tLen + 1
		} else {
			tIdx = tNext + 1
		}
	}

	return tIdx > tLen
}

// ValidateTopicFilter checks a subscription filter against the MQTT rules
// using the protocol's maximum length.
func ValidateTopicFilter(filter string) error {
	return validateTopicFilter(filter, DefaultMaxTopicLength)
}

// validateTopicName validates a topic for publishing.
// Publish topics must not contain wildcards.
func validateTopicName(topic string, maxLen int) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if len(topic) > maxLen {
		return fmt.Errorf("%w: topic length %d exceeds maximum %d", ErrInvalidTopic, len(topic), maxLen)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards are not allowed in topic names: %q", ErrInvalidTopic, topic)
	}
	return validateTopicChars(topic)
}

// validateTopicFilter validates a topic filter for subscribing.
// Filters may contain wildcards but must follow MQTT rules.
func validateTopicFilter(filter string, maxLen int) error {
	if filter == "" {
		return fmt.Errorf("%w: topic filter cannot be empty", ErrInvalidTopic)
	}
	if len(filter) > maxLen {
		return fmt.Errorf("%w: topic filter length %d exceeds maximum %d", ErrInvalidTopic, len(filter), maxLen)
	}
	if err := validateTopicChars(filter); err != nil {
		return err
	}

	levels := strings.Count(filter, "/") + 1
	rest := filter
	for i := 0; i < levels; i++ {
		level := rest
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			level, rest = rest[:idx], rest[idx+1:]
		}

		// Single-level wildcard must be alone in the level
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: '+' must occupy an entire level: %q", ErrInvalidTopic, filter)
		}

		// Multi-level wildcard must be last and alone
		if strings.Contains(level, "#") {
			if level != "#" {
				return fmt.Errorf("%w: '#' must occupy an entire level: %q", ErrInvalidTopic, filter)
			}
			if i != levels-1 {
				return fmt.Errorf("%w: '#' must be the last level: %q", ErrInvalidTopic, filter)
			}
		}
	}
	return nil
}

func validateTopicChars(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%w: null byte is not allowed", ErrInvalidTopic)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidTopic)
	}
	return nil
}
