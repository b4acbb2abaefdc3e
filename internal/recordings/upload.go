package recordings

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voxnote/backend/pkg/response"
)

// ContextFilePath is the gin context key holding the saved upload path.
const ContextFilePath = "upload_path"

// allowedMimeTypes is the upload allow-list. Several spellings exist for wav.
var allowedMimeTypes = map[string]bool{
	"audio/mpeg":     true,
	"audio/wav":      true,
	"audio/x-wav":    true,
	"audio/wave":     true,
	"audio/vnd.wave": true,
	"video/mp4":      true,
	"video/webm":     true,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Upload returns a middleware that accepts a single "file" multipart field,
// validates its declared media type and size, and writes it into dir under a
// collision-resistant name. The saved path is exposed in the gin context; a
// request without a file passes through so the handler can report it.
func Upload(dir string, maxSizeMB int64, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := maxSizeMB * 1024 * 1024
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		fh, err := c.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				c.Next()
				return
			}
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.BadRequest(c, fmt.Sprintf("File exceeds the %dMB limit", maxSizeMB))
			} else {
				response.BadRequest(c, "Invalid multipart request")
			}
			c.Abort()
			return
		}

		if fh.Size > maxBytes {
			response.BadRequest(c, fmt.Sprintf("File exceeds the %dMB limit", maxSizeMB))
			c.Abort()
			return
		}
		if !allowedMimeTypes[fh.Header.Get("Content-Type")] {
			response.BadRequest(c, "Only audio and video files are allowed")
			c.Abort()
			return
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("create upload dir failed", zap.Error(err), zap.String("dir", dir))
			response.Internal(c, "Internal server error")
			c.Abort()
			return
		}

		dst := filepath.Join(dir, uniqueName(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			logger.Error("save uploaded file failed", zap.Error(err), zap.String("dst", dst))
			response.Internal(c, "Internal server error")
			c.Abort()
			return
		}

		c.Set(ContextFilePath, dst)
		c.Next()
	}
}

// uniqueName builds "<unix-millis>-<sanitized-base><ext>" from the original
// client file name, stripping whitespace so paths stay URL-safe.
func uniqueName(original string) string {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(filepath.Base(original), ext)
	base = whitespaceRe.ReplaceAllString(base, "_")
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), base, ext)
}
