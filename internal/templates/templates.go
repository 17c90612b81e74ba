package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/imamik/boringsvc/internal/config"
	"github.com/imamik/boringsvc/internal/platform/s3"
)

// ErrTemplateNotFound is returned when a template source does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// ObjectGetter fetches objects from object storage.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Data is the value templates are executed against.
type Data struct {
	Service  string
	Host     string
	Label    string
	Params   map[string]any
	Backends []config.Backend
}

// Loader reads template sources.
type Loader struct {
	objects  ObjectGetter
	readFile func(string) ([]byte, error)
}

// NewLoader returns a Loader. objects may be nil, in which case s3://
// sources fail.
func NewLoader(objects ObjectGetter) *Loader {
	return &Loader{
		objects:  objects,
		readFile: os.ReadFile,
	}
}

// Load returns the raw template text at source.
func (l *Loader) Load(ctx context.Context, source string) (string, error) {
	if s3.IsURL(source) {
		bucket, key, ok := s3.ParseURL(source)
		if !ok {
			return "", fmt.Errorf("invalid object storage URL %q: expected s3://bucket/key", source)
		}
		if l.objects == nil {
			return "", fmt.Errorf("cannot load %s: object storage is not configured", source)
		}
		data, err := l.objects.GetObject(ctx, bucket, key)
		if err != nil {
			if errors.Is(err, s3.ErrObjectNotFound) {
				return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, source)
			}
			return "", err
		}
		return string(data), nil
	}

	data, err := l.readFile(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, source)
		}
		return "", fmt.Errorf("failed to read template %s: %w", source, err)
	}
	return string(data), nil
}

// Render loads source and executes it against data.
func (l *Loader) Render(ctx context.Context, source string, data Data) (string, error) {
	text, err := l.Load(ctx, source)
	if err != nil {
		return "", err
	}
	return Execute(source, text, data)
}

// Execute parses text as a template named name and executes it.
func Execute(name, text string, data Data) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	if data.Params == nil {
		data.Params = map[string]any{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
