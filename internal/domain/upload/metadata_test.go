package upload

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func metadataHeader(pairs map[string]string) string {
	var parts []string
	for k, v := range pairs {
		parts = append(parts, k+" "+b64(v))
	}
	return strings.Join(parts, ",")
}

func TestParseMetadata(t *testing.T) {
	required := map[string]string{
		"filename": "IMG_0001.jpg",
		"filetype": "image/jpeg",
		"coupleId": "couple-1",
		"clientId": "client-a",
	}

	t.Run("required fields", func(t *testing.T) {
		meta, err := ParseMetadata(context.Background(), metadataHeader(required))
		if err != nil {
			t.Fatalf("ParseMetadata() error = %v", err)
		}
		if meta.Filename != "IMG_0001.jpg" || meta.MimeType != "image/jpeg" {
			t.Errorf("file fields = %q/%q", meta.Filename, meta.MimeType)
		}
		if meta.CoupleID != "couple-1" || meta.ClientID != "client-a" {
			t.Errorf("identity fields = %q/%q", meta.CoupleID, meta.ClientID)
		}
	})

	t.Run("optional moment capture fields", func(t *testing.T) {
		pairs := map[string]string{
			"momentId":   "mom_1",
			"uploadType": TypeMomentCapture,
		}
		for k, v := range required {
			pairs[k] = v
		}
		meta, err := ParseMetadata(context.Background(), metadataHeader(pairs))
		if err != nil {
			t.Fatalf("ParseMetadata() error = %v", err)
		}
		if meta.MomentID != "mom_1" || meta.UploadType != TypeMomentCapture {
			t.Errorf("moment fields = %q/%q", meta.MomentID, meta.UploadType)
		}
	})
}

func TestParseMetadataMalformed(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"missing coupleId", "filename " + b64("a.jpg") + ",filetype " + b64("image/jpeg") + ",clientId " + b64("c")},
		{"invalid base64", "filename !!!not-base64!!!"},
		{"both targets", metadataHeader(map[string]string{
			"filename": "a.jpg", "filetype": "image/jpeg", "coupleId": "c1",
			"clientId": "cl", "momentId": "m1", "memoryId": "mem1",
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata(context.Background(), tt.header)
			if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeMalformedMetadata) {
				t.Fatalf("error = %v, want MALFORMED_METADATA", err)
			}
		})
	}
}
