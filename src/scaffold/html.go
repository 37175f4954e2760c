package scaffold

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var headClose = regexp.MustCompile(`(?i)</head>`)

// libFiles are the framework bundles whose paths --lib rewrites.
var libFiles = []string{
	"cameio.css", "cameio.min.css",
	"cameio.js", "cameio.min.js",
	"cameio.bundle.js", "cameio.bundle.min.js",
	"cameio-angular.js", "cameio-angular.min.js",
}

// CodepenHTML adds the doctype and the local css/js includes to a pen's html.
func CodepenHTML(doc string, cordova bool) string {
	if !strings.Contains(doc, "<!DOCTYPE html>") {
		doc = "<!DOCTYPE html>\n" + doc
	}
	resources := "    <link href=\"css/style.css\" rel=\"stylesheet\">\n" +
		"    <script src=\"js/app.js\"></script>\n"
	if cordova {
		resources += "    <script src=\"cordova.js\"></script>\n"
	}
	resources += "  </head>"

	if loc := headClose.FindStringIndex(doc); loc != nil {
		doc = doc[:loc[0]] + "\n" + resources + doc[loc[1]:]
	}
	return doc
}

// ExtractTemplates moves every <script type="text/ng-template" id="..."> of
// doc into a file under www named by its id and returns doc without them.
func ExtractTemplates(doc, www string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(doc))
	var (
		out     strings.Builder
		inTmpl  bool
		id      string
		start   int
		content string
		offset  int
		removed bool
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		pos := offset
		offset += len(raw)

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) == "script" && hasAttr {
				typ, tmplID := scriptAttrs(z)
				if strings.EqualFold(typ, "text/ng-template") && tmplID != "" {
					inTmpl, id, start, content = true, tmplID, pos, ""
					continue
				}
			}
		case html.TextToken:
			if inTmpl {
				content += raw
				continue
			}
		case html.EndTagToken:
			if inTmpl {
				name, _ := z.TagName()
				if string(name) == "script" {
					if err := writeTemplate(www, id, content); err != nil {
						return "", err
					}
					inTmpl = false
					removed = true
					continue
				}
			}
		}

		if inTmpl {
			// unterminated template; keep its text
			out.WriteString(doc[start:pos])
			inTmpl = false
		}
		out.WriteString(raw)
	}
	if inTmpl {
		out.WriteString(doc[start:])
	}

	result := out.String()
	if removed {
		result = strings.ReplaceAll(result, "    \n    \n", "")
	}
	return result, nil
}

func scriptAttrs(z *html.Tokenizer) (typ, id string) {
	for {
		key, val, more := z.TagAttr()
		switch string(key) {
		case "type":
			typ = string(val)
		case "id":
			id = string(val)
		}
		if !more {
			return typ, id
		}
	}
}

func writeTemplate(www, id, content string) error {
	target := filepath.Join(www, filepath.FromSlash(id))
	rel, err := filepath.Rel(www, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("invalid template id %q", id)
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "      ")
	}
	return writeFile(target, strings.TrimSpace(strings.Join(lines, "\n")))
}

// RewriteLibPaths points the src and href of framework bundles in doc at
// libPath, as <libPath>/css/<file> or <libPath>/js/<file>.
func RewriteLibPaths(doc, libPath string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var out strings.Builder

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())

		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, hasAttr := z.TagName()
			if tag := string(name); hasAttr && (tag == "script" || tag == "link") {
				for {
					key, val, more := z.TagAttr()
					if k := string(key); (k == "src" || k == "href") && isLibFile(string(val)) {
						raw = strings.Replace(raw, string(val), libURL(libPath, string(val)), 1)
					}
					if !more {
						break
					}
				}
			}
		}
		out.WriteString(raw)
	}
	return out.String()
}

func isLibFile(ref string) bool {
	ref = strings.ToLower(ref)
	for _, f := range libFiles {
		if strings.Contains(ref, f) {
			return true
		}
	}
	return false
}

func libURL(libPath, original string) string {
	filename := original[strings.LastIndex(original, "/")+1:]
	parts := []string{libPath}
	switch {
	case strings.Contains(filename, ".css"):
		parts = append(parts, "css")
	case strings.Contains(filename, ".js"):
		parts = append(parts, "js")
	}
	return strings.Join(append(parts, filename), "/")
}
