package routes

import (
	"fmt"
	"net/http"
)

// PrivacyPolicyHandler serves the Privacy Policy content
func PrivacyPolicyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	html := `
	<!DOCTYPE html>
	<html lang="en">
	<head>
		<meta charset="UTF-8">
		<meta name="viewport" content="width=device-width, initial-scale=1.0">
		<title>Milk Road Privacy Policy</title>
	</head>
	<body>
		<h1>Privacy Policy</h1>
		<p>Milk Road stores the feeds and sleep sessions you log, keyed by your account id.</p>
		<p>Anyone who redeems a share code you generate can read and change those records until you reset them. Share codes expire after a week.</p>
		<p>Use "Reset" to delete every record, or "Export" to download a copy.</p>
	</body>
	</html>
	`
	fmt.Fprint(w, html)
}
