package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/duetapp/duet-server/internal/utils/platformerrors"
)

// ParseMetadata decodes the Upload-Metadata header: comma-separated
// "key base64value" pairs. filename, filetype, coupleId and clientId are
// required; momentId, memoryId and uploadType are optional.
func ParseMetadata(ctx context.Context, header string) (Metadata, error) {
	values := map[string]string{}
	for _, pair := range strings.Split(header, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, " ", 2)
		key := parts[0]
		if len(parts) == 1 {
			values[key] = ""
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			return Metadata{}, malformed(ctx, fmt.Sprintf("metadata key %q is not valid base64", key), err)
		}
		values[key] = string(decoded)
	}

	meta := Metadata{
		Filename:   values["filename"],
		MimeType:   values["filetype"],
		CoupleID:   values["coupleId"],
		ClientID:   values["clientId"],
		MomentID:   values["momentId"],
		MemoryID:   values["memoryId"],
		UploadType: values["uploadType"],
	}

	var missing []string
	if meta.Filename == "" {
		missing = append(missing, "filename")
	}
	if meta.MimeType == "" {
		missing = append(missing, "filetype")
	}
	if meta.CoupleID == "" {
		missing = append(missing, "coupleId")
	}
	if meta.ClientID == "" {
		missing = append(missing, "clientId")
	}
	if len(missing) > 0 {
		return Metadata{}, malformed(ctx,
			fmt.Sprintf("missing required metadata: %s", strings.Join(missing, ", ")), nil)
	}
	if meta.MomentID != "" && meta.MemoryID != "" {
		return Metadata{}, malformed(ctx, "at most one of momentId and memoryId may be set", nil)
	}

	return meta, nil
}

func malformed(ctx context.Context, msg string, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain,
		platformerrors.ErrorTypeMalformedMetadata, msg, err, "")
}
