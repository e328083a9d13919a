package actor

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bazelment/sessioncore/internal/wire"
)

const (
	maxPDFAttachmentBytes   = 20 * 1024 * 1024
	maxGenericAttachmentBytes = 10 * 1024 * 1024
)

// attachmentBlock reads path and builds the content block the CLI expects
// for it: an image block for recognized image types, a document block
// (base64 PDF) for PDFs, and a plain text block carrying an inline error
// message if the file can't be read or exceeds its size cap, so a bad
// attachment degrades the turn rather than failing it outright.
func attachmentBlock(path string) map[string]interface{} {
	info, err := os.Stat(path)
	if err != nil {
		return wire.TextBlock(fmt.Sprintf("[attachment unavailable: %s]", filepath.Base(path)))
	}

	mediaType := mime.TypeByExtension(filepath.Ext(path))
	isPDF := mediaType == "application/pdf"

	limit := int64(maxGenericAttachmentBytes)
	if isPDF {
		limit = maxPDFAttachmentBytes
	}
	if info.Size() > limit {
		return wire.TextBlock(fmt.Sprintf("[attachment too large: %s]", filepath.Base(path)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return wire.TextBlock(fmt.Sprintf("[attachment unavailable: %s]", filepath.Base(path)))
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	if strings.HasPrefix(mediaType, "image/") {
		return wire.ImageBlock(mediaType, encoded)
	}
	if isPDF {
		return map[string]interface{}{
			"type": "document",
			"source": map[string]interface{}{
				"type":       "base64",
				"media_type": mediaType,
				"data":       encoded,
			},
		}
	}
	return wire.TextBlock(fmt.Sprintf("[attachment: %s]", filepath.Base(path)))
}
