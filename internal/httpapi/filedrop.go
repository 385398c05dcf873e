package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/luciancaetano/roomlink/internal/filedrop"
)

// The upload form posts the file under this field and expects to land back
// on the upload page with the outcome in the query string.
const uploadField = "filename"

func (s *Server) handleUpload(c echo.Context) error {
	fail := func() error {
		return c.Redirect(http.StatusFound, "/file-transfer/upload/?state=fail")
	}

	fh, err := c.FormFile(uploadField)
	if err != nil {
		return fail()
	}

	src, err := fh.Open()
	if err != nil {
		return fail()
	}
	defer src.Close()

	name, err := s.store.Save(fh.Filename, src)
	if err != nil {
		s.log.Warn("upload rejected", zap.String("name", fh.Filename), zap.Error(err))
		return fail()
	}

	return c.Redirect(http.StatusFound,
		"/file-transfer/upload/?state=success&filename="+url.QueryEscape(name))
}

type uploadEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	// Expires is the absolute epoch-millis deadline after which the file
	// is gone.
	Expires int64 `json:"expires"`
}

func (s *Server) handleUploadList(c echo.Context) error {
	entries := s.store.List()
	out := make([]uploadEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, uploadEntry{
			Name:    e.Name,
			URL:     "/file-transfer/uploads/" + url.PathEscape(e.Name),
			Expires: e.Expiry.UnixMilli(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleUploadGet(c echo.Context) error {
	path, _, err := s.store.Open(c.Param("name"))
	if err != nil {
		if errors.Is(err, filedrop.ErrNotFound) {
			return c.Redirect(http.StatusFound, "/file-transfer/uploads")
		}
		return err
	}
	return c.File(path)
}
