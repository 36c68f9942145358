package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// AuthMode controls whether a request carries the bearer token
type AuthMode int

const (
	// AuthNone never attaches a token; a 401 is an ordinary error
	AuthNone AuthMode = iota
	// AuthOptional attaches the token when one is stored
	AuthOptional
	// AuthRequired fails fast with core.ErrNotAuthenticated when no token is stored
	AuthRequired
)

func (m AuthMode) String() string {
	switch m {
	case AuthNone:
		return "none"
	case AuthOptional:
		return "optional"
	case AuthRequired:
		return "required"
	default:
		return fmt.Sprintf("AuthMode(%d)", int(m))
	}
}

// Request describes one backend call. At most one of JSON and Form is set.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   *Multipart
	Auth   AuthMode
}

// Multipart is a multipart/form-data body
type Multipart struct {
	Fields []FormField
	Files  []FormFile
}

type FormField struct {
	Name  string
	Value string
}

type FormFile struct {
	Field    string
	Filename string
	Data     []byte
}

// Add appends a text field
func (m *Multipart) Add(name, value string) {
	m.Fields = append(m.Fields, FormField{Name: name, Value: value})
}

// AddFile appends a file part
func (m *Multipart) AddFile(field, filename string, data []byte) {
	m.Files = append(m.Files, FormFile{Field: field, Filename: filename, Data: data})
}

// Value returns the first value of a text field
func (m *Multipart) Value(name string) (string, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// encodedBody is a request body serialized once so a retry sends the same bytes
type encodedBody struct {
	data        []byte
	contentType string
}

func (b *encodedBody) reader() io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b.data)
}

func (r Request) encode() (*encodedBody, error) {
	if r.JSON != nil && r.Form != nil {
		return nil, fmt.Errorf("request %s %s sets both JSON and form bodies", r.Method, r.Path)
	}

	if r.JSON != nil {
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		return &encodedBody{data: data, contentType: "application/json"}, nil
	}

	if r.Form != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, f := range r.Form.Fields {
			if err := w.WriteField(f.Name, f.Value); err != nil {
				return nil, fmt.Errorf("failed to write form field %s: %w", f.Name, err)
			}
		}
		for _, f := range r.Form.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, fmt.Errorf("failed to create form file %s: %w", f.Field, err)
			}
			if _, err := part.Write(f.Data); err != nil {
				return nil, fmt.Errorf("failed to write form file %s: %w", f.Field, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close multipart body: %w", err)
		}
		return &encodedBody{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
	}

	return nil, nil
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Response is a 2xx backend response with its body fully read
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 || r.Status == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
