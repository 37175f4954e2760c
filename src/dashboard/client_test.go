package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"cameio-cli/src/config"
	"cameio-cli/src/logger"
	"cameio-cli/src/service"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(&config.Config{DashURL: server.URL, APIPrefix: "/api/v1/"}, logger.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func testSession() *service.Session {
	return &service.Session{Cookies: []*http.Cookie{
		{Name: "csrftoken", Value: "csrf123"},
		{Name: "sessionid", Value: "sess456"},
	}}
}

type part struct {
	Name     string
	Filename string
	Value    string
}

// readParts returns the multipart parts of r in wire order.
func readParts(t *testing.T, r *http.Request) []part {
	t.Helper()
	mr, err := r.MultipartReader()
	if err != nil {
		t.Fatalf("MultipartReader() error = %v", err)
	}
	var parts []part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart() error = %v", err)
		}
		data, _ := io.ReadAll(p)
		parts = append(parts, part{Name: p.FormName(), Filename: p.FileName(), Value: string(data)})
	}
	return parts
}

func TestNewClient_InvalidProxy(t *testing.T) {
	_, err := NewClient(&config.Config{DashURL: "https://apps.cameio.io", Proxy: "://bad"}, logger.NewSilentLogger())
	if err == nil {
		t.Error("NewClient() expected error for invalid proxy")
	}
}

func TestClient_Login(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/user/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if r.PostForm.Get("username") != "dev@example.com" {
			t.Errorf("username = %q, want lowercased email", r.PostForm.Get("username"))
		}
		if r.PostForm.Get("password") == "wrong" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "sid", Path: "/", Expires: expires})
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	sess, err := client.Login(context.Background(), "Dev@Example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if sess.CSRFToken() != "tok" {
		t.Errorf("CSRFToken() = %q, want tok", sess.CSRFToken())
	}
	if !sess.Valid(time.Now()) {
		t.Error("session should be valid")
	}

	_, err = client.Login(context.Background(), "dev@example.com", "wrong")
	if !errors.Is(err, service.ErrAuth) {
		t.Errorf("Login() error = %v, want ErrAuth", err)
	}
}

func TestClient_Login_RedirectIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/user/login" {
			http.Redirect(w, r, "/login?next=/", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Login(context.Background(), "a@b.io", "pw")
	if !errors.Is(err, service.ErrAuth) {
		t.Errorf("Login() error = %v, want ErrAuth", err)
	}
}

func TestClient_Upload(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "www.zip")
	if err := os.WriteFile(archive, []byte("PK-zip-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/app/upload/app42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Cookie"); got != "csrftoken=csrf123; sessionid=sess456" {
			t.Errorf("Cookie = %q", got)
		}

		want := []part{
			{Name: "name", Value: "myApp"},
			{Name: "note", Value: "first"},
			{Name: "csrfmiddlewaretoken", Value: "csrf123"},
			{Name: "app_file", Filename: "www.zip", Value: "PK-zip-bytes"},
		}
		if diff := cmp.Diff(want, readParts(t, r)); diff != "" {
			t.Errorf("multipart parts mismatch (-want +got):\n%s", diff)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"app_id":"app42"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server).Upload(context.Background(), testSession(), service.UploadRequest{
		AppID:       "app42",
		Name:        "myApp",
		Note:        "first",
		ArchivePath: archive,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if resp.AppID != "app42" {
		t.Errorf("AppID = %q, want app42", resp.AppID)
	}
}

func TestClient_Upload_StatusCodes(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "www.zip")
	if err := os.WriteFile(archive, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"session expired", http.StatusUnauthorized, "", service.ErrSessionExpired},
		{"forbidden", http.StatusForbidden, "", service.ErrForbidden},
		{"server error without errors", http.StatusInternalServerError, `{}`, service.ErrRejected},
		{"not json", http.StatusOK, `<html>`, service.ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server).Upload(context.Background(), testSession(), service.UploadRequest{ArchivePath: archive})
			if !errors.Is(err, tt.want) {
				t.Errorf("Upload() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_Upload_ErrorsFieldReturned(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "www.zip")
	if err := os.WriteFile(archive, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":["App too large"]}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server).Upload(context.Background(), testSession(), service.UploadRequest{ArchivePath: archive})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "App too large" {
		t.Errorf("Errors = %v", resp.Errors)
	}
}

func TestClient_Upload_TransportError(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "www.zip")
	if err := os.WriteFile(archive, []byte("zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, server)
	server.Close()

	_, err := client.Upload(context.Background(), testSession(), service.UploadRequest{ArchivePath: archive})
	if !errors.Is(err, service.ErrTransport) {
		t.Errorf("Upload() error = %v, want ErrTransport", err)
	}
}

func TestClient_Upload_MissingArchive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Upload(context.Background(), testSession(), service.UploadRequest{ArchivePath: "/does/not/exist.zip"})
	if !errors.Is(err, service.ErrLocalIO) {
		t.Errorf("Upload() error = %v, want ErrLocalIO", err)
	}
}

func TestClient_SubmitBuild_FieldOrder(t *testing.T) {
	dir := t.TempDir()
	keystore := filepath.Join(dir, "release.keystore")
	if err := os.WriteFile(keystore, []byte("KEYSTORE"), 0o600); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/app/app42/package" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("cck") != "client-key" {
			t.Errorf("cck header = %q", r.Header.Get("cck"))
		}

		want := []part{
			{Name: "build_status_email", Value: "true"},
			{Name: "name", Value: "myApp"},
			{Name: "platform", Value: "android"},
			{Name: "build_mode", Value: "release"},
			{Name: "csrfmiddlewaretoken", Value: "csrf123"},
			{Name: "plugin_0", Value: "https://github.com/x/camera"},
			{Name: "plugin_0_name", Value: "camera"},
			{Name: "plugin_0_version", Value: "1.2.0"},
			{Name: "plugin_1", Value: "device"},
			{Name: "plugin_1_name", Value: "device"},
			{Name: "android_keystore_alias", Value: "alias"},
			{Name: "android_keystore_password", Value: "storepw"},
			{Name: "android_keystore_file", Filename: "release.keystore", Value: "KEYSTORE"},
			{Name: "config_file", Value: "<widget/>"},
		}
		if diff := cmp.Diff(want, readParts(t, r)); diff != "" {
			t.Errorf("multipart parts mismatch (-want +got):\n%s", diff)
		}

		w.Write([]byte(`{"build_status_url":"http://status/1","cck":"new-cck","app_id":"app42","name":"myApp"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server).SubmitBuild(context.Background(), testSession(), service.BuildRequest{
		AppID:            "app42",
		Name:             "myApp",
		Platform:         service.PlatformAndroid,
		Mode:             service.ModeRelease,
		BuildStatusEmail: true,
		CCK:              "client-key",
		Plugins: []service.Plugin{
			{Name: "camera", Repo: "https://github.com/x/camera", Version: "1.2.0"},
			{Name: "device"},
		},
		Values: map[string]string{
			"android-keystore-password": "storepw",
			"android-keystore-alias":    "alias",
		},
		Files:      map[string]string{"android-keystore-file": keystore},
		ConfigFile: "<widget/>",
	})
	if err != nil {
		t.Fatalf("SubmitBuild() error = %v", err)
	}

	want := &service.BuildResponse{BuildStatusURL: "http://status/1", CCK: "new-cck", AppID: "app42", Name: "myApp"}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_BuildStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/99" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if !strings.Contains(r.Header.Get("Cookie"), "sessionid=sess456") {
			t.Errorf("poll must carry session cookies, got %q", r.Header.Get("Cookie"))
		}
		w.Write([]byte(`{"status":3,"package_url":"http://pkg/app.apk","package_filename":"app.apk"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server).BuildStatus(context.Background(), testSession(), server.URL+"/status/99")
	if err != nil {
		t.Fatalf("BuildStatus() error = %v", err)
	}
	if resp.Status == nil || *resp.Status != service.StatusSuccess {
		t.Errorf("Status = %v, want success", resp.Status)
	}
	if resp.PackageFilename != "app.apk" {
		t.Errorf("PackageFilename = %q", resp.PackageFilename)
	}
}

func TestClient_SigningInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/app/ok/signing":
			if r.Header.Get("cck") != "key" {
				t.Errorf("cck header = %q", r.Header.Get("cck"))
			}
			w.Write([]byte(`{"is_valid_android_keystore_file":true}`))
		case "/api/v1/app/missing/signing":
			w.WriteHeader(http.StatusNotFound)
		case "/api/v1/app/null/signing":
			w.Write([]byte(`null`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()

	info, err := client.SigningInfo(ctx, testSession(), "ok", "key")
	if err != nil {
		t.Fatalf("SigningInfo() error = %v", err)
	}
	if !info.IsValid("android-keystore-file") {
		t.Error("android-keystore-file should be valid")
	}

	info, err = client.SigningInfo(ctx, testSession(), "missing", "key")
	if err != nil || info != nil {
		t.Errorf("SigningInfo() = %v, %v, want nil, nil on non-200", info, err)
	}

	if _, err := client.SigningInfo(ctx, testSession(), "null", "key"); !errors.Is(err, service.ErrBadResponse) {
		t.Errorf("SigningInfo() error = %v, want ErrBadResponse", err)
	}
}

func TestClient_ClearSigning(t *testing.T) {
	var hit bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/app/app42/signing/clear" {
			hit = true
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.ClearSigning(context.Background(), testSession(), "app42"); err != nil {
		t.Fatalf("ClearSigning() error = %v", err)
	}
	if !hit {
		t.Error("clear endpoint not called")
	}
	if err := client.ClearSigning(context.Background(), testSession(), "other"); !errors.Is(err, service.ErrRejected) {
		t.Errorf("ClearSigning() error = %v, want ErrRejected", err)
	}
}

func TestClient_Versions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := readParts(t, r)
		if len(parts) != 1 || parts[0].Name != "csrfmiddlewaretoken" || parts[0].Value != "csrf123" {
			t.Errorf("parts = %+v", parts)
		}
		switch r.URL.Path {
		case "/api/v1/app/good/versions":
			w.Write([]byte(`[{"uuid":"0123456789","created":"2026-01-01","note":"n","active":true}]`))
		default:
			w.Write([]byte(`{"errors":["No such app"]}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	versions, err := client.Versions(context.Background(), testSession(), "good")
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	want := []service.Version{{UUID: "0123456789", Created: "2026-01-01", Note: "n", Active: true}}
	if diff := cmp.Diff(want, versions); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}

	_, err = client.Versions(context.Background(), testSession(), "bad")
	var remote *service.RemoteError
	if !errors.As(err, &remote) || remote.Messages[0] != "No such app" {
		t.Errorf("Versions() error = %v, want RemoteError", err)
	}
}

func TestClient_Deploy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("csrfmiddlewaretoken") != "csrf123" {
			t.Errorf("csrf = %q", r.PostForm.Get("csrfmiddlewaretoken"))
		}
		if r.PostForm.Get("uuid") == "bad" {
			w.Write([]byte(`{"errors":["Unknown version"]}`))
			return
		}
		w.Write([]byte(`{"uuid":"` + r.PostForm.Get("uuid") + `"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	resp, err := client.Deploy(context.Background(), testSession(), "app42", "v1")
	if err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}
	if resp.UUID != "v1" {
		t.Errorf("UUID = %q", resp.UUID)
	}

	if _, err := client.Deploy(context.Background(), testSession(), "app42", "bad"); !errors.Is(err, service.ErrRejected) {
		t.Errorf("Deploy() error = %v, want rejection", err)
	}
}

func TestClient_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "" {
			t.Errorf("download must not send cookies, got %q", r.Header.Get("Cookie"))
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("APKDATA"))
	}))
	defer server.Close()

	client := newTestClient(t, server)

	body, size, err := client.Download(context.Background(), server.URL+"/app.apk")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "APKDATA" || size != 7 {
		t.Errorf("Download() = %q (%d), want APKDATA (7)", data, size)
	}

	if _, _, err := client.Download(context.Background(), server.URL+"/missing"); err == nil {
		t.Error("Download() expected error for 404")
	}
}
