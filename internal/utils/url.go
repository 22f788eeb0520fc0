package utils

import "strings"

// NormalizeURL defaults the scheme to http and strips trailing slashes after
// the scheme. Hosts are not validated.
func NormalizeURL(url string) string {
	scheme := "http://"
	for _, s := range []string{"http://", "https://"} {
		if strings.HasPrefix(url, s) {
			scheme = s
			url = url[len(s):]
			break
		}
	}
	return scheme + strings.TrimRight(url, "/")
}
