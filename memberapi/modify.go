package memberapi

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/open-rails/profilekit/core"
)

// UpdateProfile posts the payload as multipart/form-data. Only the fields the
// payload carries are written; the backend keeps the others.
func (c *Client) UpdateProfile(ctx context.Context, p core.UpdatePayload) error {
	body, ctype, err := encodeModifyForm(p)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.paths.Modify, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ctype)
	status, resp, err := c.do(req)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		c.log.WithField("status", status).WithField("login_id", p.LoginID).Warn("member_modify_rejected")
		return fmt.Errorf("%w: modify returned %d: %s", core.ErrServerRejected, status, strings.TrimSpace(string(resp)))
	}
	return nil
}

func encodeModifyForm(p core.UpdatePayload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct {
		name string
		val  *string
	}{
		{"name", p.Name},
		{"nickname", p.Nickname},
		{"email", p.Email},
		{"cellphone", p.Cellphone},
		{"address", p.Address},
		{"loginPw", p.Password},
	}
	for _, f := range fields {
		if f.val == nil {
			continue
		}
		if err := w.WriteField(f.name, *f.val); err != nil {
			return nil, "", err
		}
	}
	if p.Photo != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photoFile"; filename=%q`, p.Photo.Filename))
		ct := p.Photo.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(p.Photo.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
