package uitemplates

import (
	"bytes"
	"fmt"
	"html/template"
)

// GalleryCard is one flower, rendered with its visual-aging treatment
// already computed.
type GalleryCard struct {
	ID   string
	Note string

	ImageURL string

	// BackgroundStyle is the precomputed style attribute for the card's
	// overlay background, empty when there is none.
	BackgroundStyle template.CSS

	Category  string
	DateTaken string

	StageName  string
	BadgeClass string

	// AgingStyle is the precomputed CSS treatment simulating physical
	// pressing (filter, transform, opacity).
	AgingStyle template.CSS

	ProgressPercent int

	EditLink string
}

type GalleryParams struct {
	ActiveUser ActiveUserParams

	Cards []GalleryCard

	SearchText string
	Category   string
	Stage      string

	Categories []string
	Stages     []string

	HasMore      bool
	LoadMoreLink string

	LoadError string
}

var galleryText = `{{define "title"}}My Gallery{{end}}

{{define "nav"}}
<a class="btn btn-primary" href="/add-flower">Add Flower</a>
<a class="btn btn-outline-secondary" href="/log-out">Log Out</a>
{{end}}

{{define "content"}}
<h1>My Pressed Flowers</h1>

{{if .LoadError}}
  <div class="alert alert-danger" role="alert">
    Error: {{.LoadError}}
  </div>
{{end}}

<form method="GET" action="/gallery" class="row g-2 mb-4">
  <div class="col-auto">
    <input type="search" name="q" value="{{.SearchText}}" placeholder="Search notes..." class="form-control">
  </div>
  <div class="col-auto">
    <select name="category" class="form-select">
      <option value="">All categories</option>
      {{$selected := .Category}}
      {{range .Categories}}
      <option value="{{.}}" {{if eq . $selected}}selected{{end}}>{{.}}</option>
      {{end}}
    </select>
  </div>
  <div class="col-auto">
    <select name="stage" class="form-select">
      <option value="">All stages</option>
      {{$stage := .Stage}}
      {{range .Stages}}
      <option value="{{.}}" {{if eq . $stage}}selected{{end}}>{{.}}</option>
      {{end}}
    </select>
  </div>
  <div class="col-auto">
    <button type="submit" class="btn btn-secondary">Apply</button>
  </div>
</form>

<div class="row row-cols-1 row-cols-md-3 g-4">
{{range .Cards}}
  <div class="col">
    <div class="card h-100">
      <div class="position-relative" {{if .BackgroundStyle}}style="{{.BackgroundStyle}}"{{end}}>
        <img src="{{.ImageURL}}" class="card-img-top"
             style="{{.AgingStyle}}"
             alt="{{.Note}}">
        <span class="position-absolute top-0 end-0 m-2 badge {{.BadgeClass}}" title="{{.StageName}}">{{.StageName}}</span>
      </div>
      <div class="card-body">
        <p class="card-text">{{.Note}}</p>
        <p class="text-muted small">{{.Category}} &middot; taken {{.DateTaken}}</p>
        <div class="progress" role="progressbar" aria-label="Pressing progress">
          <div class="progress-bar" style="width: {{.ProgressPercent}}%">{{.ProgressPercent}}%</div>
        </div>
      </div>
      <div class="card-footer d-flex justify-content-between">
        <a class="btn btn-sm btn-outline-secondary" href="{{.EditLink}}">Edit</a>
        <form method="POST" action="/delete-flower">
          <input type="hidden" name="flower" value="{{.ID}}">
          <button type="submit" class="btn btn-sm btn-outline-danger">Delete</button>
        </form>
      </div>
    </div>
  </div>
{{else}}
  <p>No flowers yet.  <a href="/add-flower">Press your first one.</a></p>
{{end}}
</div>

{{if .HasMore}}
<div class="text-center my-4">
  <a class="btn btn-outline-primary" href="{{.LoadMoreLink}}">Load more</a>
</div>
{{end}}
{{end}}
`

var galleryTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(galleryText))

func GalleryPage(params *GalleryParams) ([]byte, error) {
	b := bytes.Buffer{}
	if err := galleryTemplate.Execute(&b, params); err != nil {
		return nil, fmt.Errorf("while executing template: %w", err)
	}
	return b.Bytes(), nil
}
