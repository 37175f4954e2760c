// Package configxml edits the cordova config.xml of a project in place.
// Edits splice the existing text so formatting and comments survive.
package configxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileName is the config file at the project root.
const FileName = "config.xml"

// DefaultContentSrc is assumed when a project has no config.xml.
const DefaultContentSrc = "index.html"

var (
	ErrNotFound  = errors.New("Unable to locate config.xml file. Please ensure the working directory is at the root of the app where the config.xml should be located.")
	ErrNoContent = errors.New("config.xml has no <content> element")
	ErrNoWidget  = errors.New("config.xml has no <widget> element")
)

var (
	contentTag = regexp.MustCompile(`<content\b[^>]*?/?>`)
	widgetTag  = regexp.MustCompile(`<widget\b[^>]*>`)
	nameElem   = regexp.MustCompile(`(?s)<name\b[^>]*>(.*?)</name>`)
)

// Doc is a loaded config.xml.
type Doc struct {
	path    string
	text    string
	changed bool
}

// Load reads config.xml in dir.
func Load(dir string) (*Doc, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("Error loading %s: %w", path, err)
	}
	return &Doc{path: path, text: string(data)}, nil
}

// String returns the current document text.
func (d *Doc) String() string {
	return d.text
}

// Changed reports whether an edit modified the document.
func (d *Doc) Changed() bool {
	return d.changed
}

// Save writes the document when it changed.
func (d *Doc) Save() error {
	if !d.changed {
		return nil
	}
	if err := os.WriteFile(d.path, []byte(d.text), 0o644); err != nil {
		return fmt.Errorf("Error saving %s: %w", d.path, err)
	}
	d.changed = false
	return nil
}

// ContentSrc returns the src attribute of <content>.
func (d *Doc) ContentSrc() (string, error) {
	tag := contentTag.FindString(d.text)
	if tag == "" {
		return "", ErrNoContent
	}
	v, _ := getAttr(tag, "src")
	return v, nil
}

// SetDevServer points <content src> at url, remembering the first
// original value in original-src.
func (d *Doc) SetDevServer(url string) error {
	return d.editContent(func(tag string) string {
		if v, ok := getAttr(tag, "original-src"); !ok || v == "" {
			src, _ := getAttr(tag, "src")
			tag = setAttr(tag, "original-src", src)
		}
		if src, _ := getAttr(tag, "src"); src != url {
			tag = setAttr(tag, "src", url)
		}
		return tag
	})
}

// ResetContent restores <content src> from original-src and drops it.
func (d *Doc) ResetContent() error {
	return d.editContent(func(tag string) string {
		orig, ok := getAttr(tag, "original-src")
		if !ok || orig == "" {
			return tag
		}
		return removeAttr(setAttr(tag, "src", orig), "original-src")
	})
}

// SetWidget sets the widget id and the app name.
func (d *Doc) SetWidget(id, name string) error {
	loc := widgetTag.FindStringIndex(d.text)
	if loc == nil {
		return ErrNoWidget
	}
	tag := d.text[loc[0]:loc[1]]
	newTag := setAttr(tag, "id", id)
	text := d.text[:loc[0]] + newTag + d.text[loc[1]:]

	escaped := escape(name)
	if m := nameElem.FindStringSubmatchIndex(text); m != nil {
		text = text[:m[2]] + escaped + text[m[3]:]
	} else {
		end := loc[0] + len(newTag)
		text = text[:end] + "\n    <name>" + escaped + "</name>" + text[end:]
	}

	if text != d.text {
		d.text = text
		d.changed = true
	}
	return nil
}

func (d *Doc) editContent(edit func(tag string) string) error {
	loc := contentTag.FindStringIndex(d.text)
	if loc == nil {
		return ErrNoContent
	}
	tag := d.text[loc[0]:loc[1]]
	newTag := edit(tag)
	if newTag != tag {
		d.text = d.text[:loc[0]] + newTag + d.text[loc[1]:]
		d.changed = true
	}
	return nil
}

func attrPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\s` + regexp.QuoteMeta(name) + `\s*=\s*("([^"]*)"|'([^']*)')`)
}

func getAttr(tag, name string) (string, bool) {
	m := attrPattern(name).FindStringSubmatch(tag)
	if m == nil {
		return "", false
	}
	if strings.HasPrefix(m[1], `'`) {
		return unescape(m[3]), true
	}
	return unescape(m[2]), true
}

func setAttr(tag, name, value string) string {
	attr := fmt.Sprintf(` %s="%s"`, name, escape(value))
	re := attrPattern(name)
	if loc := re.FindStringIndex(tag); loc != nil {
		return tag[:loc[0]] + attr + tag[loc[1]:]
	}
	end := len(tag) - 1
	if strings.HasSuffix(tag, "/>") {
		end = len(tag) - 2
		for end > 0 && tag[end-1] == ' ' {
			end--
		}
		return tag[:end] + attr + " />"
	}
	return tag[:end] + attr + tag[end:]
}

func removeAttr(tag, name string) string {
	return attrPattern(name).ReplaceAllString(tag, "")
}

func escape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func unescape(s string) string {
	var v string
	if err := xml.Unmarshal([]byte("<v>"+s+"</v>"), &v); err != nil {
		return s
	}
	return v
}

// ContentSrc returns the app start page of the project in dir. Any
// leftover dev server src is reset first. Projects without config.xml
// start at index.html.
func ContentSrc(dir string) (string, error) {
	doc, err := Load(dir)
	if errors.Is(err, ErrNotFound) {
		return DefaultContentSrc, nil
	}
	if err != nil {
		return "", err
	}
	if err := doc.ResetContent(); err != nil {
		return "", fmt.Errorf("Error parsing %s: %w", doc.path, err)
	}
	if err := doc.Save(); err != nil {
		return "", err
	}
	return doc.ContentSrc()
}

// SetDevServer points the project in dir at a dev server url.
func SetDevServer(dir, url string) error {
	return edit(dir, true, func(d *Doc) error { return d.SetDevServer(url) })
}

// ResetContent restores the original start page. A missing config.xml is
// an error only when errorWhenNotFound is set.
func ResetContent(dir string, errorWhenNotFound bool) error {
	return edit(dir, errorWhenNotFound, func(d *Doc) error { return d.ResetContent() })
}

// SetWidget updates the widget id and name of the project in dir.
func SetWidget(dir, id, name string) error {
	return edit(dir, true, func(d *Doc) error { return d.SetWidget(id, name) })
}

func edit(dir string, errorWhenNotFound bool, fn func(*Doc) error) error {
	doc, err := Load(dir)
	if errors.Is(err, ErrNotFound) && !errorWhenNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return fmt.Errorf("Error updating %s: %w", doc.path, err)
	}
	return doc.Save()
}
