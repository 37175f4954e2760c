package configxml

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `<?xml version='1.0' encoding='utf-8'?>
<widget id="com.cameio.starter" version="0.0.1" xmlns="http://www.w3.org/ns/widgets">
  <name>HelloCameio</name>
  <!-- keep me -->
  <content src="index.html"/>
  <access origin="*"/>
</widget>
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func readConfig(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestDevServerRoundTrip(t *testing.T) {
	dir := writeConfig(t, sample)

	if err := SetDevServer(dir, "http://192.168.1.4:8100"); err != nil {
		t.Fatalf("SetDevServer() error = %v", err)
	}
	got := readConfig(t, dir)
	if !strings.Contains(got, `<content src="http://192.168.1.4:8100" original-src="index.html" />`) {
		t.Errorf("dev server not set:\n%s", got)
	}
	if !strings.Contains(got, "<!-- keep me -->") {
		t.Error("comment lost")
	}

	// a second call keeps the first original
	if err := SetDevServer(dir, "http://10.0.0.2:8100"); err != nil {
		t.Fatal(err)
	}
	doc, _ := Load(dir)
	if src, _ := doc.ContentSrc(); src != "http://10.0.0.2:8100" {
		t.Errorf("src = %q", src)
	}
	if strings.Count(doc.String(), "original-src") != 1 {
		t.Errorf("original-src duplicated:\n%s", doc.String())
	}

	if err := ResetContent(dir, true); err != nil {
		t.Fatalf("ResetContent() error = %v", err)
	}
	if got := readConfig(t, dir); got != strings.Replace(sample, `<content src="index.html"/>`, `<content src="index.html" />`, 1) {
		t.Errorf("reset mismatch:\n%s", got)
	}
}

func TestResetContent_NoOriginalLeavesFileUntouched(t *testing.T) {
	dir := writeConfig(t, sample)
	before, _ := os.Stat(filepath.Join(dir, FileName))

	if err := ResetContent(dir, true); err != nil {
		t.Fatal(err)
	}
	if got := readConfig(t, dir); got != sample {
		t.Errorf("file changed:\n%s", got)
	}
	after, _ := os.Stat(filepath.Join(dir, FileName))
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("file rewritten without changes")
	}
}

func TestMissingFile(t *testing.T) {
	dir := t.TempDir()

	if err := ResetContent(dir, false); err != nil {
		t.Errorf("ResetContent(optional) error = %v", err)
	}
	if err := ResetContent(dir, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResetContent(required) error = %v, want ErrNotFound", err)
	}
	if err := SetDevServer(dir, "http://x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetDevServer() error = %v, want ErrNotFound", err)
	}

	src, err := ContentSrc(dir)
	if err != nil || src != DefaultContentSrc {
		t.Errorf("ContentSrc() = %q, %v", src, err)
	}
}

func TestContentSrc_ResetsLeftoverDevServer(t *testing.T) {
	dir := writeConfig(t, strings.Replace(sample,
		`<content src="index.html"/>`,
		`<content src='http://old:8100' original-src='main.html'/>`, 1))

	src, err := ContentSrc(dir)
	if err != nil {
		t.Fatal(err)
	}
	if src != "main.html" {
		t.Errorf("ContentSrc() = %q, want main.html", src)
	}
	if strings.Contains(readConfig(t, dir), "original-src") {
		t.Error("original-src should be removed")
	}
}

func TestSetWidget(t *testing.T) {
	dir := writeConfig(t, sample)

	if err := SetWidget(dir, "com.example.todo", "Todo & Co"); err != nil {
		t.Fatalf("SetWidget() error = %v", err)
	}
	got := readConfig(t, dir)
	if !strings.Contains(got, `<widget id="com.example.todo" version="0.0.1"`) {
		t.Errorf("id not set:\n%s", got)
	}
	if !strings.Contains(got, "<name>Todo &amp; Co</name>") {
		t.Errorf("name not set:\n%s", got)
	}
}

func TestSetWidget_InsertsName(t *testing.T) {
	dir := writeConfig(t, "<widget id=\"a\">\n  <content src=\"index.html\"/>\n</widget>\n")

	if err := SetWidget(dir, "b", "App"); err != nil {
		t.Fatal(err)
	}
	got := readConfig(t, dir)
	if !strings.Contains(got, "<widget id=\"b\">\n    <name>App</name>") {
		t.Errorf("name not inserted:\n%s", got)
	}
}

func TestNoContentElement(t *testing.T) {
	dir := writeConfig(t, "<widget id=\"a\"></widget>")
	if err := SetDevServer(dir, "http://x"); !errors.Is(err, ErrNoContent) {
		t.Errorf("error = %v, want ErrNoContent", err)
	}
}
