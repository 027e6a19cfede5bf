package uitemplates

import "html/template"

type HomeParams struct {
	ActiveUser ActiveUserParams
}

var homeText = `{{define "title"}}Welcome{{end}}

{{define "nav"}}
{{if .ActiveUser.LoggedIn}}<a class="btn btn-outline-secondary" href="/log-out">Log Out</a>{{else}}<a class="btn btn-primary" href="/log-in">Log In</a>{{end}}
{{end}}

{{define "content"}}
<div class="text-center py-5">
  <h1>FlowerPress</h1>
  <p class="lead">Photograph a flower today, watch it press over the weeks.</p>
  {{if .ActiveUser.LoggedIn}}
  <a class="btn btn-primary" href="/gallery">Open your gallery</a>
  {{else}}
  <a class="btn btn-primary" href="/log-in">Log in to start pressing</a>
  {{end}}
</div>
{{end}}
`

var HomeTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(homeText))
