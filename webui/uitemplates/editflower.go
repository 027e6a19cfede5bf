package uitemplates

import (
	"bytes"
	"fmt"
	"html/template"
)

type EditFlowerParams struct {
	UserError string

	ID        string
	Note      string
	DateTaken string
	Category  string
	ImageURL  string

	Categories []string
}

var editFlowerText = `
{{define "title"}}Edit Flower{{end}}

{{define "content"}}

<h1>Edit flower:</h1>

{{if .UserError}}
  <div class="alert alert-danger" role="alert">
    Error: {{.UserError}}
  </div>
{{end}}

<img src="{{.ImageURL}}" alt="{{.Note}}" class="img-thumbnail mb-3" style="max-height: 200px;">

<form method="POST" enctype="multipart/form-data">
  <input type="hidden" name="flower" value="{{.ID}}">

  <div class="mb-3">
    <label for="note" class="form-label">Note</label>
    <input id="note"
           type="text"
           name="note"
           value="{{.Note}}"
           class="form-control"
           required>
  </div>

  <div class="mb-3">
    <label for="date-taken" class="form-label">Date taken</label>
    <input id="date-taken"
           type="date"
           name="date-taken"
           value="{{.DateTaken}}"
           class="form-control"
           required>
  </div>

  <div class="mb-3">
    <label for="category" class="form-label">Category</label>
    <select id="category" name="category" class="form-select" required>
      {{$selected := .Category}}
      {{range .Categories}}
      <option value="{{.}}" {{if eq . $selected}}selected{{end}}>{{.}}</option>
      {{end}}
    </select>
  </div>

  <div class="mb-3">
    <label for="image" class="form-label">Replace photo</label>
    <input id="image"
           type="file"
           name="image"
           accept="image/*"
           class="form-control">
  </div>

  <button type="submit" class="btn btn-primary">Save</button>
  <a href="/gallery" class="btn btn-outline-secondary">Cancel</a>
</form>

{{end}}
`

var editFlowerTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(editFlowerText))

func EditFlowerPage(params *EditFlowerParams) ([]byte, error) {
	b := bytes.Buffer{}
	if err := editFlowerTemplate.Execute(&b, params); err != nil {
		return nil, fmt.Errorf("while executing template: %w", err)
	}
	return b.Bytes(), nil
}
