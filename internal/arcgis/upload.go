package arcgis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"sdpublish/internal/services"
)

type uploadResponse struct {
	Status string `json:"status"`
	Item   struct {
		ItemID   string `json:"itemID"`
		ItemName string `json:"itemName"`
	} `json:"item"`
}

// Upload streams the file at path to the site's upload store and returns
// the item id that identifies it in later requests.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "open", path, err)
	}
	defer file.Close()

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(c.writeUploadForm(form, file, filepath.Base(path)))
	}()
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contextURL+uploadPath, body)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "build request", path, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out uploadResponse
	if err := c.do(req, &out); err != nil {
		return "", services.Wrap(services.ErrUpload, "upload", "POST", path, err)
	}
	itemID := strings.TrimSpace(out.Item.ItemID)
	if itemID == "" {
		return "", services.Wrap(services.ErrUpload, "upload", "POST", path, errors.New("response did not include an item id"))
	}
	return itemID, nil
}

func (c *Client) writeUploadForm(form *multipart.Writer, file io.Reader, name string) error {
	if err := form.WriteField("f", "json"); err != nil {
		return err
	}
	if err := form.WriteField("token", c.token); err != nil {
		return err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="itemFile"; filename=%q`, name))
	header.Set("Content-Type", contentType(name))
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	return form.Close()
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
