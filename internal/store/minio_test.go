package store

import "testing"

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{"bare host:port", "minio:9000", "minio:9000", false, false},
		{"http scheme", "http://minio:9000", "minio:9000", false, false},
		{"https scheme", "https://s3.example.com", "s3.example.com", true, false},
		{"surrounding whitespace", "  minio:9000 ", "minio:9000", false, false},
		{"empty", "", "", false, true},
		{"path not allowed", "http://minio:9000/bucket", "", false, true},
		{"scheme without host", "http://", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, secure, err := normaliseEndpoint(tt.raw)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got host=%q", host)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.wantHost || secure != tt.wantSecure {
				t.Fatalf("got (%q, %v), want (%q, %v)", host, secure, tt.wantHost, tt.wantSecure)
			}
		})
	}
}

func TestObjectKey(t *testing.T) {
	if got := objectKey(NSEncrypted, "note.txt"); got != "encrypted/note.txt" {
		t.Fatalf("objectKey = %q", got)
	}
}
