package uitemplates

import (
	"bytes"
	"fmt"
	"html/template"
)

// PresetOption is one of the fixed overlay backgrounds the user can pick.
type PresetOption struct {
	Key     string
	Preview string
}

type AddFlowerParams struct {
	UserError string

	Today string

	Categories []string
	Presets    []PresetOption
}

var addFlowerText = `
{{define "title"}}Add Flower{{end}}

{{define "content"}}

<h1>Add a flower:</h1>

{{if .UserError}}
  <div class="alert alert-danger" role="alert">
    Error: {{.UserError}}
  </div>
{{end}}

<form method="POST" enctype="multipart/form-data">
  <div class="mb-3">
    <label for="image" class="form-label">Photo</label>
    <input id="image"
           type="file"
           name="image"
           accept="image/*"
           class="form-control"
           required>
    <div class="form-check mt-1">
      <input id="remove-background" type="checkbox" name="remove-background" class="form-check-input">
      <label for="remove-background" class="form-check-label">Remove photo background</label>
    </div>
  </div>

  <div class="mb-3">
    <label for="note" class="form-label">Note</label>
    <input id="note"
           type="text"
           name="note"
           value=""
           class="form-control"
           required>
  </div>

  <div class="mb-3">
    <label for="date-taken" class="form-label">Date taken</label>
    <input id="date-taken"
           type="date"
           name="date-taken"
           value="{{.Today}}"
           class="form-control"
           required>
  </div>

  <div class="mb-3">
    <label for="category" class="form-label">Category</label>
    <select id="category" name="category" class="form-select" required>
      {{range .Categories}}
      <option value="{{.}}">{{.}}</option>
      {{end}}
    </select>
  </div>

  <div class="mb-3">
    <label class="form-label">Background</label>
    <div class="form-check">
      <input id="background-none" type="radio" name="background-type" value="none" class="form-check-input" checked>
      <label for="background-none" class="form-check-label">None</label>
    </div>
    {{range .Presets}}
    <div class="form-check">
      <input id="background-{{.Key}}" type="radio" name="background-type" value="preset:{{.Key}}" class="form-check-input">
      <label for="background-{{.Key}}" class="form-check-label"><img src="{{.Preview}}" alt="{{.Key}}" height="32"> {{.Key}}</label>
    </div>
    {{end}}
    <div class="form-check">
      <input id="background-custom" type="radio" name="background-type" value="custom" class="form-check-input">
      <label for="background-custom" class="form-check-label">Custom upload</label>
      <input type="file" name="background-image" accept="image/*" class="form-control mt-1">
    </div>
  </div>

  <button type="submit" class="btn btn-primary">Add Flower</button>
</form>

{{end}}
`

var addFlowerTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(addFlowerText))

func AddFlowerPage(params *AddFlowerParams) ([]byte, error) {
	b := bytes.Buffer{}
	if err := addFlowerTemplate.Execute(&b, params); err != nil {
		return nil, fmt.Errorf("while executing template: %w", err)
	}
	return b.Bytes(), nil
}
