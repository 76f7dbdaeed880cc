package source

import "strings"

// RenderMessage expands {path}, {repository}, {revision} and {short} in tmpl.
// The result depends only on its inputs, so retries of the same revision
// produce the same message.
func RenderMessage(tmpl string, rev Revision, artifactPath string) string {
	r := strings.NewReplacer(
		"{path}", artifactPath,
		"{repository}", rev.Repository,
		"{revision}", rev.Hash,
		"{short}", rev.Short(),
	)
	return r.Replace(tmpl)
}
