// Package provider rewrites hosting-provider share links into direct-download
// URLs. Rules are a pure, order-sensitive list; unrecognized URLs pass
// through unchanged and the package never fails.
package provider

import "strings"

// Rule maps a share-link pattern to its direct-download form.
type Rule struct {
	Name  string
	Match func(url string) bool
	Apply func(url string) string
}

// Rules are checked in order; first match wins.
var Rules = []Rule{
	{
		Name:  "google-drive",
		Match: func(url string) bool { return strings.Contains(url, "drive.google.com") },
		Apply: googleDrive,
	},
	{
		Name:  "dropbox",
		Match: func(url string) bool { return strings.Contains(url, "dropbox.com") },
		Apply: dropbox,
	},
	{
		Name:  "github",
		Match: func(url string) bool { return strings.Contains(url, "github.com") },
		Apply: github,
	},
}

// Normalize rewrites a share link into a direct-download URL, returning the
// input unchanged when no rule matches.
func Normalize(url string) string {
	for _, rule := range Rules {
		if rule.Match(url) {
			return rule.Apply(url)
		}
	}
	return url
}

func googleDrive(url string) string {
	// Share links look like .../file/d/<id>/view; the export endpoint takes
	// the bare id. Links without a d/ segment pass through untouched.
	_, rest, found := strings.Cut(url, "d/")
	if !found {
		return url
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return url
	}
	return "https://drive.google.com/uc?export=download&id=" + id
}

func dropbox(url string) string {
	if strings.HasSuffix(url, ".png") {
		return url + "?dl=1"
	}
	return strings.Replace(url, "dl=0", "dl=1", 1)
}

func github(url string) string {
	out := strings.Replace(url, "github.com", "raw.githubusercontent.com", 1)
	return strings.Replace(out, "blob/", "", 1)
}
