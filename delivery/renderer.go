// Package delivery sends confirmation codes to users out of band.
package delivery

import (
	"bytes"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
	tracker "github.com/goliatone/go-tracker"
)

const (
	// ConfirmationTemplate is the template used for confirmation messages.
	ConfirmationTemplate = "confirmation_code"
	ConfirmationSubject  = "Your confirmation code"
)

// Envelope is a rendered message ready for a transport.
type Envelope struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Renderer turns a tracker.ConfirmationMessage into an Envelope.
type Renderer struct {
	from   string
	engine *django.Engine
}

// NewRenderer loads the django templates found in fsys. A nil fsys uses
// the templates embedded in the tracker package.
func NewRenderer(from string, fsys fs.FS) (*Renderer, error) {
	if fsys == nil {
		fsys = tracker.GetTemplatesFS()
	}

	engine := django.NewFileSystem(http.FS(fsys), ".django")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "load message templates")
	}

	return &Renderer{from: from, engine: engine}, nil
}

func (r *Renderer) Render(msg tracker.ConfirmationMessage) (Envelope, error) {
	var buf bytes.Buffer
	err := r.engine.Render(&buf, ConfirmationTemplate, map[string]any{
		"username": msg.Username,
		"code":     msg.Code,
	})
	if err != nil {
		return Envelope{}, errors.Wrap(err, errors.CategoryInternal, "render confirmation message")
	}

	return Envelope{
		From:    r.from,
		To:      msg.To,
		Subject: ConfirmationSubject,
		Body:    strings.TrimSpace(buf.String()) + "\n",
	}, nil
}
