package uitemplates

import "html/template"

type LogInParams struct {
	UserError string

	// GoogleOAuthClientID enables the "Sign in with Google" button when
	// non-empty.
	GoogleOAuthClientID string
}

var logInText = `{{define "title"}}Log In{{end}}

{{define "content"}}
{{if .UserError}}<div class="alert alert-danger">{{.UserError}}</div>{{end}}
<form method="POST" action="/log-in">
  <label for="email">Email</label>
  <input type="email" name="email" id="email" required>
  <label for="password">Password</label>
  <input type="password" name="password" id="password" required>
  <input type="submit" value="Log In">
</form>

{{if .GoogleOAuthClientID}}
<div class="mt-3">
  <div id="g_id_onload"
       data-client_id="{{.GoogleOAuthClientID}}"
       data-login_uri="/log-in-google"
       data-auto_prompt="false"></div>
  <div class="g_id_signin" data-type="standard"></div>
</div>
{{end}}
{{end}}

{{define "scripts"}}
{{if .GoogleOAuthClientID}}<script src="https://accounts.google.com/gsi/client" async defer></script>{{end}}
{{end}}
`

var LogInTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(logInText))
