// Package markup turns user text and media references into the HTML
// fragments the poll clients render. Input is escaped first; the transforms
// are pure and side-effect free. The moderation filter runs on raw semantic
// text before any of this, never on the produced markup.
package markup

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	urlRe      = regexp.MustCompile(`https?://[^\s]+`)
	imageExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif)$`)
)

// emotes are replaced in order after escaping.
var emotes = []struct{ token, img string }{
	{":)", `<img src="/emotes/smile.gif">`},
	{":(", `<img src="/emotes/sad.gif">`},
	{";)", `<img src="/emotes/wink.gif">`},
	{":D", `<img src="/emotes/grin.gif">`},
}

// Render escapes text and substitutes emote tokens and links. URLs ending in
// an image extension become inline image anchors.
func Render(text string) string {
	out := html.EscapeString(text)
	for _, e := range emotes {
		out = strings.ReplaceAll(out, e.token, e.img)
	}
	return urlRe.ReplaceAllStringFunc(out, func(url string) string {
		if imageExtRe.MatchString(url) {
			return fmt.Sprintf(`<br><a href="%s" target="_blank"><img src="%s" width="150"></a><br>`, url, url)
		}
		return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, url, url)
	})
}

// MediaFragment builds the caption fragment for an ingested upload. kind is
// the pipeline's classification ("image", "video" or "audio"); name is the
// attacker-chosen original filename and is escaped before embedding.
func MediaFragment(kind, url, name string) string {
	caption := html.EscapeString(name)
	switch kind {
	case "video":
		return fmt.Sprintf(`<br><video src="%s" width="400" controls></video> %s`, url, caption)
	case "audio":
		return fmt.Sprintf(`<br><audio src="%s" controls></audio> %s`, url, caption)
	default:
		return fmt.Sprintf(`<br><a href="%s" target="_blank"><img src="%s" width="150"></a> %s`, url, url, caption)
	}
}
