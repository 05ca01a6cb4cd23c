package models

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMIME string
		wantData []byte
		wantErr  bool
	}{
		{
			name:     "png payload",
			input:    "data:image/png;base64,aGVsbG8=",
			wantMIME: "image/png",
			wantData: []byte("hello"),
		},
		{
			name:    "missing prefix",
			input:   "image/png;base64,aGVsbG8=",
			wantErr: true,
		},
		{
			name:    "missing comma",
			input:   "data:image/png;base64",
			wantErr: true,
		},
		{
			name:    "not base64",
			input:   "data:text/plain;charset=utf-8,hello",
			wantErr: true,
		},
		{
			name:    "bad base64",
			input:   "data:image/png;base64,@@@",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDataURL(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDataURL() error = %v", err)
			}
			if got.MIMEType != tt.wantMIME {
				t.Errorf("MIMEType = %q, want %q", got.MIMEType, tt.wantMIME)
			}
			if !bytes.Equal(got.Data, tt.wantData) {
				t.Errorf("Data = %q, want %q", got.Data, tt.wantData)
			}
		})
	}
}

func TestPayloadJSONUsesDataURL(t *testing.T) {
	p := Payload{MIMEType: "image/webp", Data: []byte{1, 2, 3}}

	b, err := json.Marshal(ProcessedResult{OriginalID: "a", Payload: p})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(b, []byte(`"payload":"data:image/webp;base64,AQID"`)) {
		t.Fatalf("unexpected JSON %s", b)
	}

	var back ProcessedResult
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Payload.MIMEType != "image/webp" || !bytes.Equal(back.Payload.Data, p.Data) {
		t.Fatalf("payload = %+v, want %+v", back.Payload, p)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		mime    string
		lossy   bool
		wantBad bool
	}{
		{in: "jpg", want: FormatJPEG, mime: "image/jpeg", lossy: true},
		{in: "JPEG", want: FormatJPEG, mime: "image/jpeg", lossy: true},
		{in: "png", want: FormatPNG, mime: "image/png"},
		{in: "webp", want: FormatWebP, mime: "image/webp", lossy: true},
		{in: "gif", wantBad: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, ok := ParseFormat(tt.in)
			if tt.wantBad {
				if ok {
					t.Fatalf("ParseFormat(%q) accepted", tt.in)
				}
				return
			}
			if !ok || f != tt.want {
				t.Fatalf("ParseFormat(%q) = %q, %v", tt.in, f, ok)
			}
			if f.MIMEType() != tt.mime {
				t.Errorf("MIMEType() = %q, want %q", f.MIMEType(), tt.mime)
			}
			if f.Lossy() != tt.lossy {
				t.Errorf("Lossy() = %v, want %v", f.Lossy(), tt.lossy)
			}
		})
	}
}
