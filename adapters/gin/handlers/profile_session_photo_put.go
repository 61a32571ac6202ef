package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/open-rails/profilekit/adapters/ginutil"
	core "github.com/open-rails/profilekit/core"
)

// MaxPhotoBytes caps an uploaded profile photo.
const MaxPhotoBytes = 5 << 20

// HandleProfileSessionPhotoPUT handles PUT /profile/sessions/:id/photo
// Expects multipart form data with a photoFile part.
func HandleProfileSessionPhotoPUT(svc ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := loadSession(c, svc)
		if !ok {
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxPhotoBytes+(64<<10))
		fh, err := c.FormFile("photoFile")
		if err != nil {
			ginutil.BadRequest(c, "invalid_format")
			return
		}
		ctype := fh.Header.Get("Content-Type")
		if fh.Size > MaxPhotoBytes || !strings.HasPrefix(ctype, "image/") {
			ginutil.BadRequest(c, "invalid_format")
			return
		}
		f, err := fh.Open()
		if err != nil {
			ginutil.ServerErrWithLog(c, "photo_read_failed", err, "failed to open uploaded photo")
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			ginutil.ServerErrWithLog(c, "photo_read_failed", err, "failed to read uploaded photo")
			return
		}
		if err := sess.SetPhoto(&core.PhotoFile{Filename: fh.Filename, ContentType: ctype, Data: data}); err != nil {
			ginutil.CoreErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sess.View())
	}
}
