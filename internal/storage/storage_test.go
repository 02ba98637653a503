package storage

import "testing"

func TestMenuImageKey(t *testing.T) {
	tests := []struct {
		md5  string
		ext  string
		want string
	}{
		{md5: "3fa2c0de", ext: "jpeg", want: "menus/3f/3fa2c0de.jpg"},
		{md5: "ABCDEF", ext: ".PNG", want: "menus/ab/abcdef.png"},
		{md5: "0a", ext: "webp", want: "menus/0a/0a.webp"},
	}
	for _, tt := range tests {
		if got := MenuImageKey(tt.md5, tt.ext); got != tt.want {
			t.Errorf("MenuImageKey(%q, %q): expected %s, got %s", tt.md5, tt.ext, tt.want, got)
		}
	}
}

func TestSpeechKey(t *testing.T) {
	if got := SpeechKey("abc-123"); got != "speech/abc-123.mp3" {
		t.Errorf("expected speech/abc-123.mp3, got %s", got)
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := map[string]StorageType{
		"https://acct.r2.cloudflarestorage.com": StorageTypeR2,
		"s3.eu-west-1.amazonaws.com":            StorageTypeS3,
		"":                                      StorageTypeS3,
		"localhost:9000":                        StorageTypeS3Compatible,
	}
	for endpoint, want := range tests {
		if got := detectStorageType(endpoint); got != want {
			t.Errorf("%q: expected %s, got %s", endpoint, want, got)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"https://minio.local:9000/":     "minio.local:9000",
		"http://localhost:9000/bucket":  "localhost:9000",
		"acct.r2.cloudflarestorage.com": "acct.r2.cloudflarestorage.com",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}

func TestObjectBaseURL(t *testing.T) {
	tests := []struct {
		name      string
		publicURL string
		endpoint  string
		want      string
	}{
		{name: "public url wins", publicURL: "https://cdn.example.com/", endpoint: "localhost:9000", want: "https://cdn.example.com"},
		{name: "path style endpoint", endpoint: "localhost:9000", want: "http://localhost:9000/menus"},
		{name: "aws default", want: "https://menus.s3.us-east-1.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := objectBaseURL(tt.publicURL, "http", tt.endpoint, "menus", "us-east-1"); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewStorageRequiresBucket(t *testing.T) {
	if _, err := NewStorage(&S3Config{Endpoint: "localhost:9000"}); err == nil {
		t.Error("expected error without bucket")
	}
	if _, err := NewStorage(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
