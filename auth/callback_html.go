package auth

import (
	"html"
	"net/http"
	"strings"
)

// successPageHTML is shown in the browser tab after a successful
// authorization redirect.
const successPageHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Authorization Successful</title>
	<style>
		body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; text-align: center; padding: 50px; }
		.success { color: #10b981; }
		.container { max-width: 600px; margin: 0 auto; }
	</style>
</head>
<body>
	<div class="container">
		<h1 class="success">Authorization Successful</h1>
		<p>You can close this window and return to the terminal.</p>
	</div>
</body>
</html>
`

// errorPageHTML is shown when the authorization server redirects with an
// error. Placeholders are substituted with escaped values.
const errorPageHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Authorization Failed</title>
	<style>
		body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; text-align: center; padding: 50px; }
		.error { color: #dc2626; }
		.container { max-width: 600px; margin: 0 auto; }
	</style>
</head>
<body>
	<div class="container">
		<h1 class="error">Authorization Failed</h1>
		<p>Error: {{ERROR}}</p>
		<p>{{DESCRIPTION}}</p>
		<p>You can close this window.</p>
	</div>
</body>
</html>
`

// malformedPageHTML is shown for callback requests missing code or state
const malformedPageHTML = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>Invalid Callback</title>
</head>
<body>
	<h1>Invalid Callback</h1>
	<p>The authorization response is missing the code or state parameter.</p>
</body>
</html>
`

func writeSuccessPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(successPageHTML))
}

func writeErrorPage(w http.ResponseWriter, errCode, description string) {
	page := strings.Replace(errorPageHTML, "{{ERROR}}", html.EscapeString(errCode), 1)
	page = strings.Replace(page, "{{DESCRIPTION}}", html.EscapeString(description), 1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func writeMalformedPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(malformedPageHTML))
}
