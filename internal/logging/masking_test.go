package logging

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleSecret = "apiv3_Zm9vYmFyYmF6cXV4LXNlY3JldC12YWx1ZV9hYmNkZWYxMjM0NTY3ODkw"

func TestMaskHeader(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"bearer auth", "Authorization", "Bearer " + sampleSecret, "Bearer [REDACTED]"},
		{"token scheme", "authorization", "Token " + sampleSecret, "Token [REDACTED]"},
		{"bare credential", "Authorization", sampleSecret, "[REDACTED]"},
		{"password header", "X-Password", "hunter2", "[REDACTED]"},
		{"secret header", "X-Client-Secret", "s3cr3t", "[REDACTED]"},
		{"token header", "X-Auth-Token", "abc", "[REDACTED]"},
		{"api key", "X-API-Key", "abc", "[REDACTED]"},
		{"private key", "X-Private-Key", "-----BEGIN", "[REDACTED]"},
		{"plain header", "Content-Type", "application/json", "application/json"},
		{"secret in other header", "Referer", "https://x/?t=" + sampleSecret, "https://x/?t=apiv3_[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskHeader(tt.header, tt.value); got != tt.want {
				t.Errorf("MaskHeader(%q, %q) = %q, want %q", tt.header, tt.value, got, tt.want)
			}
		})
	}
}

func TestRedactSecrets(t *testing.T) {
	t.Parallel()
	in := "New token created successfully!\nToken: " + sampleSecret + "\nName: foo"
	out := RedactSecrets(in)
	if strings.Contains(out, sampleSecret) {
		t.Fatalf("secret survived redaction: %q", out)
	}
	if !strings.Contains(out, "Name: foo") {
		t.Errorf("non-secret text was altered: %q", out)
	}
	if RedactSecrets("nothing here") != "nothing here" {
		t.Error("text without secrets must be unchanged")
	}
}

func TestMaskJSONBody(t *testing.T) {
	t.Parallel()
	body := []byte(`{"id":1,"name":"foo_admin","kind":"named_admin","token":"` + sampleSecret + `","message":"New token created successfully!"}`)

	masked := MaskJSONBody(body, DefaultAllowlist)

	var got map[string]any
	if err := json.Unmarshal(masked, &got); err != nil {
		t.Fatalf("masked body is not JSON: %v", err)
	}
	if got["token"] != Redacted {
		t.Errorf("token = %v, want %s", got["token"], Redacted)
	}
	if got["name"] != "foo_admin" {
		t.Errorf("name = %v, want foo_admin", got["name"])
	}
	if got["message"] != "New token created successfully!" {
		t.Errorf("message = %v", got["message"])
	}
}

func TestMaskJSONBodyNested(t *testing.T) {
	t.Parallel()
	body := []byte(`{"tokens":[{"name":"a","token":"x"},{"name":"b","extra":{"secret":"y","kind":"operator"}}]}`)

	masked := string(MaskJSONBody(body, DefaultAllowlist))

	for _, leaked := range []string{`"x"`, `"y"`} {
		if strings.Contains(masked, leaked) {
			t.Errorf("value %s leaked: %s", leaked, masked)
		}
	}
	for _, kept := range []string{`"a"`, `"b"`, `"operator"`} {
		if !strings.Contains(masked, kept) {
			t.Errorf("value %s missing: %s", kept, masked)
		}
	}
}

func TestMaskJSONBodyAllowlistedFieldQuotingSecret(t *testing.T) {
	t.Parallel()
	body := []byte(`{"message":"rejected ` + sampleSecret + `"}`)

	if masked := string(MaskJSONBody(body, DefaultAllowlist)); strings.Contains(masked, sampleSecret) {
		t.Errorf("secret leaked through allowlisted field: %s", masked)
	}
}

func TestMaskJSONBodyNonJSON(t *testing.T) {
	t.Parallel()
	body := []byte("Token: " + sampleSecret)

	for _, allowlist := range [][]string{nil, DefaultAllowlist} {
		if masked := string(MaskJSONBody(body, allowlist)); strings.Contains(masked, sampleSecret) {
			t.Errorf("secret leaked from text body: %s", masked)
		}
	}
}

func TestMaskJSONBodyNilAllowlistKeepsFields(t *testing.T) {
	t.Parallel()
	body := []byte(`{"name":"foo","other":"value"}`)
	if got := string(MaskJSONBody(body, nil)); got != string(body) {
		t.Errorf("MaskJSONBody(nil) = %s, want unchanged", got)
	}
}

func TestMaskJSONBodyEmptyAllowlist(t *testing.T) {
	t.Parallel()
	masked := string(MaskJSONBody([]byte(`{"name":"foo"}`), []string{}))
	if masked != `{"name":"[REDACTED]"}` {
		t.Errorf("empty allowlist should redact all primitives, got %s", masked)
	}
}

func TestMaskJSONBodyEmpty(t *testing.T) {
	t.Parallel()
	if got := MaskJSONBody(nil, DefaultAllowlist); len(got) != 0 {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestFormatBinaryData(t *testing.T) {
	t.Parallel()
	if got := FormatBinaryData([]byte{0xff, 0xfe, 0x00}); got != "[BINARY: 3 bytes]" {
		t.Errorf("FormatBinaryData = %q", got)
	}
}
