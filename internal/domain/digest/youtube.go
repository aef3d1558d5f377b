package digest

import (
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ExtractVideoID returns the video identifier of a YouTube link.
// It understands watch?v=, youtu.be/, embed/, shorts/, live/ and v/ links.
func ExtractVideoID(raw string) (string, bool) {
	parsed, err := parseHTTPURL(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	var id string
	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		id = segments[0]
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") ||
		host == "youtube-nocookie.com" || strings.HasSuffix(host, ".youtube-nocookie.com"):
		if len(segments) > 0 && segments[0] == "watch" {
			id = parsed.Query().Get("v")
			break
		}
		if len(segments) >= 2 {
			switch segments[0] {
			case "embed", "shorts", "live", "v":
				id = segments[1]
			}
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}
