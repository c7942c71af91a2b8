package handlers

import (
	"io"
	"net/http"
	"strings"
)

// Crawlers may have the front page; the API and session endpoints are not
// for them.
var robotsLines = []string{
	"User-agent: *",
	"Allow: /$",
	"Disallow: /api/",
	"Disallow: /login",
	"Disallow: /logout",
	"Disallow: /register",
	"Disallow: /metrics",
}

func HandleRobotsTXT(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.WriteString(w, strings.Join(robotsLines, "\r\n")+"\r\n")
}
