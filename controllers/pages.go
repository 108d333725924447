package controllers

import (
	"net/http"
)

// PagesController serves the two static pages the flow needs. They are
// inline so the binary ships without a templates directory.
type PagesController struct{}

func NewPagesController() *PagesController {
	return &PagesController{}
}

const successPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Account linked</title>
  <style>
    body { font-family: sans-serif; background: #1e2124; color: #fff; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
    .card { background: #282b30; padding: 2.5rem 3rem; border-radius: 12px; text-align: center; }
    h1 { color: #2ecc71; margin-top: 0; }
    p { color: #b9bbbe; }
  </style>
</head>
<body>
  <div class="card">
    <h1>&#10004; Account linked</h1>
    <p>Your Discord and Steam accounts are now linked.<br>You can close this window and return to Discord.</p>
  </div>
</body>
</html>
`

const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Not found</title>
  <style>
    body { font-family: sans-serif; background: #1e2124; color: #fff; display: flex; align-items: center; justify-content: center; height: 100vh; margin: 0; }
    .card { background: #282b30; padding: 2.5rem 3rem; border-radius: 12px; text-align: center; }
    h1 { color: #e74c3c; margin-top: 0; }
    p { color: #b9bbbe; }
  </style>
</head>
<body>
  <div class="card">
    <h1>Page not found</h1>
    <p>This link is invalid or has expired.<br>Request a new one from Discord.</p>
  </div>
</body>
</html>
`

// Success confirms a completed bind.
func (pc *PagesController) Success(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(successPage))
}

// NotFound serves the catch-all page. Expired and invalid link tokens land
// here too, deliberately indistinguishable from a wrong URL.
func (pc *PagesController) NotFound(w http.ResponseWriter, r *http.Request) {
	renderNotFound(w)
}

// renderNotFound writes the 404 page. The auth handlers use it for every
// token and callback refusal so those responses match unmatched routes
// byte for byte.
func renderNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(notFoundPage))
}
