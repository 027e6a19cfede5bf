package uitemplates

import (
	"bytes"
	"fmt"
	"html/template"
)

type FeedbackParams struct {
	UserError string

	// Sent is true after a successful submission.
	Sent bool

	FromName  string
	FromEmail string
	Subject   string
	Message   string
}

var feedbackText = `
{{define "title"}}Feedback{{end}}

{{define "content"}}

<h1>Send feedback:</h1>

{{if .Sent}}
  <div class="alert alert-success" role="alert">
    Thanks!  Your feedback has been sent.
  </div>
{{end}}

{{if .UserError}}
  <div class="alert alert-danger" role="alert">
    Error: {{.UserError}}
  </div>
{{end}}

<form method="POST">
  <div class="mb-3">
    <label for="from-name" class="form-label">Your name</label>
    <input id="from-name" type="text" name="from-name" value="{{.FromName}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="from-email" class="form-label">Your email</label>
    <input id="from-email" type="email" name="from-email" value="{{.FromEmail}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="subject" class="form-label">Subject</label>
    <input id="subject" type="text" name="subject" value="{{.Subject}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="message" class="form-label">Message</label>
    <textarea id="message" name="message" class="form-control" rows="5" required>{{.Message}}</textarea>
  </div>

  <button type="submit" class="btn btn-primary">Send</button>
</form>

{{end}}
`

var feedbackTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(feedbackText))

func FeedbackPage(params *FeedbackParams) ([]byte, error) {
	b := bytes.Buffer{}
	if err := feedbackTemplate.Execute(&b, params); err != nil {
		return nil, fmt.Errorf("while executing template: %w", err)
	}
	return b.Bytes(), nil
}
