package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is an encoded image together with its media type
type Payload struct {
	MIMEType string
	Data     []byte
}

// ParseDataURL splits a data URL of the form data:<mime>;base64,<data>
func ParseDataURL(s string) (Payload, error) {
	if !strings.HasPrefix(s, "data:") {
		return Payload{}, fmt.Errorf("not a data URL")
	}
	comma := strings.Index(s, ",")
	semi := strings.Index(s, ";")
	if comma == -1 || semi == -1 || semi > comma {
		return Payload{}, fmt.Errorf("malformed data URL")
	}
	if s[semi+1:comma] != "base64" {
		return Payload{}, fmt.Errorf("unsupported data URL encoding %q", s[semi+1:comma])
	}

	data, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return Payload{}, fmt.Errorf("failed to decode data URL: %w", err)
	}

	return Payload{
		MIMEType: s[len("data:"):semi],
		Data:     data,
	}, nil
}

// DataURL renders the payload as a base64 data URL
func (p Payload) DataURL() string {
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Subtype returns the part of the media type after "image/", e.g. "png"
func (p Payload) Subtype() string {
	_, sub, ok := strings.Cut(p.MIMEType, "/")
	if !ok {
		return ""
	}
	return sub
}

// IsEmpty reports whether the payload carries no bytes
func (p Payload) IsEmpty() bool {
	return len(p.Data) == 0
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.IsEmpty() {
		return []byte(`""`), nil
	}
	return json.Marshal(p.DataURL())
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*p = Payload{}
		return nil
	}
	parsed, err := ParseDataURL(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
