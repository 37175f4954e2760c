package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"cameio-cli/src/service"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// form accumulates a multipart body in field order. The first error sticks.
type form struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	f := &form{}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *form) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
}

// file appends the file at path as a part named name. An empty filename
// uses the base name of path.
func (f *form) file(name, path, filename, contentType string) {
	if f.err != nil {
		return
	}
	if filename == "" {
		filename = filepath.Base(path)
	}

	src, err := os.Open(path)
	if err != nil {
		f.err = fmt.Errorf("%w: error loading %s: %w", service.ErrLocalIO, path, err)
		return
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)

	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	if _, err := io.Copy(part, src); err != nil {
		f.err = fmt.Errorf("%w: error loading %s: %w", service.ErrLocalIO, path, err)
	}
}

// finish closes the writer and returns the body and its content type.
func (f *form) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return &f.buf, f.w.FormDataContentType(), nil
}
