// vpnwatch - VPN Identity Tracking and IP Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vpnwatch

package vpn

import (
	"github.com/goccy/go-json"
)

// ParseMetadata converts stored string fields into typed settings values.
// Each value that decodes as JSON takes the decoded type ("2" -> float64 2,
// "true" -> bool, `{"a":1}` -> map); anything else stays a string.
func ParseMetadata(raw map[string]string) Settings {
	out := make(Settings, len(raw))
	for k, v := range raw {
		out[k] = parseValue(v)
	}
	return out
}

func parseValue(v string) any {
	var decoded any
	if err := json.Unmarshal([]byte(v), &decoded); err != nil {
		return v
	}
	return decoded
}

// EncodeMetadata is the inverse of ParseMetadata for writing fields back to
// the store. Strings are stored verbatim unless they would decode as JSON,
// in which case they are stored quoted.
func EncodeMetadata(fields Settings) (map[string]string, error) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			if parsed, isString := parseValue(s).(string); isString && parsed == s {
				out[k] = s
				continue
			}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = string(data)
	}
	return out, nil
}
