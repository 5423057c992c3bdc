// Package template implements the template resource kind: renders Source
// (a text/template document) against Variables and writes the result the
// same way the file driver would, falling through to
// file-identical create/create_if_missing/delete semantics once rendered.
package template

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	tpl "text/template"

	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/internal/atomicfile"
	"github.com/ratazzi/hola/internal/modeparse"
	"github.com/ratazzi/hola/internal/ownership"
	"github.com/ratazzi/hola/internal/pathutil"
	"github.com/ratazzi/hola/resource"
)

const defaultMode = os.FileMode(0o644)

// Driver converges resource.TemplateProps records.
type Driver struct {
	DefaultBackupCount int
}

// New returns a template Driver that keeps defaultBackupCount backups on
// every write (TemplateProps has no Backup field of its own; templates
// share the file kind's backup default).
func New(defaultBackupCount int) *Driver { return &Driver{DefaultBackupCount: defaultBackupCount} }

func (d *Driver) Apply(_ context.Context, _ *drivers.Env, rec *resource.Record, action string) (resource.ApplyResult, error) {
	p := rec.Template
	path, err := pathutil.Expand(string(p.Path))
	if err != nil {
		return resource.ApplyResult{}, err
	}

	if action == "delete" {
		return d.delete(path, action)
	}
	if action == "create_if_missing" {
		if _, statErr := os.Lstat(path); statErr == nil {
			return resource.NoUpdate(action, "already exists"), nil
		}
	}

	rendered, err := render(p)
	if err != nil {
		return resource.ApplyResult{}, fmt.Errorf("template %s: %w", p.Source, err)
	}
	return d.write(path, p, rendered, action)
}

func render(p *resource.TemplateProps) ([]byte, error) {
	sourceBytes, err := os.ReadFile(p.Source)
	if err != nil {
		return nil, err
	}
	t, err := tpl.New(string(p.Path)).Parse(string(sourceBytes))
	if err != nil {
		return nil, err
	}
	vars := make(map[string]interface{}, len(p.Variables))
	for _, v := range p.Variables {
		vars[v.Name] = coerce(v)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func coerce(v resource.TemplateVariable) interface{} {
	switch v.Type {
	case "integer":
		n, _ := strconv.ParseInt(v.Literal, 10, 64)
		return n
	case "float":
		f, _ := strconv.ParseFloat(v.Literal, 64)
		return f
	case "boolean":
		b, _ := strconv.ParseBool(v.Literal)
		return b
	case "nil":
		return nil
	case "array":
		return []string{v.Literal}
	default:
		return v.Literal
	}
}

func (d *Driver) write(path string, p *resource.TemplateProps, content []byte, action string) (resource.ApplyResult, error) {
	mode, hasMode, err := modeparse.Parse(p.Mode)
	if err != nil {
		return resource.ApplyResult{}, err
	}
	useMode := modeparse.Or(mode, hasMode, defaultMode)

	existing, readErr := os.ReadFile(path)
	contentSame := readErr == nil && bytesEqual(existing, content)

	ownerDiverges := false
	if p.Owner != "" || p.Group != "" {
		diverges, err := ownership.Diverges(path, p.Owner, p.Group)
		if err != nil {
			return resource.ApplyResult{}, err
		}
		ownerDiverges = diverges
	}
	if contentSame && !ownerDiverges {
		return resource.NoUpdate(action, "rendered content unchanged"), nil
	}

	updated := false
	if !contentSame {
		if err := atomicfile.Write(path, content, useMode, d.DefaultBackupCount); err != nil {
			return resource.ApplyResult{}, err
		}
		updated = true
	}
	if ownerDiverges {
		if err := ownership.Chown(path, p.Owner, p.Group); err != nil {
			return resource.ApplyResult{}, err
		}
		updated = true
	}
	if !updated {
		return resource.NoUpdate(action, "rendered content unchanged"), nil
	}
	return resource.Updated(action), nil
}

func (d *Driver) delete(path, action string) (resource.ApplyResult, error) {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return resource.NoUpdate(action, "already absent"), nil
	}
	if err := os.Remove(path); err != nil {
		return resource.ApplyResult{}, err
	}
	return resource.Updated(action), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
