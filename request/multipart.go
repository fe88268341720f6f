package request

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

type multipartFile struct {
	field    string
	filename string
	data     []byte
}

// Multipart accumulates form fields and files for a multipart/form-data
// body. Fields keep their insertion order.
type Multipart struct {
	fields [][2]string
	files  []multipartFile
}

// NewMultipart returns an empty multipart body.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// AddField appends a plain form field.
func (m *Multipart) AddField(name, value string) *Multipart {
	m.fields = append(m.fields, [2]string{name, value})
	return m
}

// AddFile appends a file part.
func (m *Multipart) AddFile(field, filename string, data []byte) *Multipart {
	m.files = append(m.files, multipartFile{field: field, filename: filename, data: data})
	return m
}

// Len reports the number of parts.
func (m *Multipart) Len() int {
	return len(m.fields) + len(m.files)
}

// Encode renders the body and returns it with its Content-Type.
func (m *Multipart) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range m.fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %q: %w", f[0], err)
		}
	}

	for _, f := range m.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", "application/x-bittorrent")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %q: %w", f.filename, err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, "", fmt.Errorf("write part %q: %w", f.filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
