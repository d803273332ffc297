package quip

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestFindDocumentByTitle(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1/folders/FOLDER":
			json.NewEncoder(w).Encode(map[string]any{
				"children": []map[string]string{
					{"thread_id": "t-one"},
					{"folder_id": "nested"},
					{"thread_id": "t-two"},
				},
			})
		case "/1/threads/":
			if got := r.URL.Query().Get("ids"); got != "t-one,t-two" {
				t.Errorf("unexpected ids query: %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"t-one": map[string]any{"thread": map[string]string{"id": "t-one", "title": "Other"}},
				"t-two": map[string]any{"thread": map[string]string{"id": "t-two", "title": "Runbook"}},
			})
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", "FOLDER", zaptest.NewLogger(t))

	id, err := c.FindDocumentByTitle(context.Background(), "Runbook")
	if err != nil {
		t.Fatalf("FindDocumentByTitle failed: %v", err)
	}
	if id != "t-two" {
		t.Errorf("expected thread t-two, got %q", id)
	}

	id, err = c.FindDocumentByTitle(context.Background(), "Missing")
	if err != nil {
		t.Fatalf("FindDocumentByTitle failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected no match, got %q", id)
	}
}

func TestCreateDocument(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/threads/new-document" {
			t.Errorf("unexpected request: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad form: %v", err)
		}
		if r.PostForm.Get("format") != "html" || r.PostForm.Get("member_ids") != "FOLDER" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"thread": map[string]string{"id": "t-new"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", "FOLDER", zaptest.NewLogger(t))

	id, err := c.CreateDocument(context.Background(), "Doc", "<h1>Doc</h1>")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if id != "t-new" {
		t.Errorf("expected thread t-new, got %q", id)
	}
}

func TestUpdateDocumentDeletesFirstSection(t *testing.T) {

	var edits []struct {
		location  string
		sectionID string
		content   string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1/threads/t-1":
			json.NewEncoder(w).Encode(map[string]any{
				"thread": map[string]string{"id": "t-1", "title": "Doc"},
				"html":   "<h1 id='sec-a'>Doc</h1>\n<p id='sec-b'>old</p>",
			})
		case "/1/threads/edit-document":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("bad form: %v", err)
			}
			edits = append(edits, struct {
				location  string
				sectionID string
				content   string
			}{
				r.PostForm.Get("location"),
				r.PostForm.Get("section_id"),
				r.PostForm.Get("content"),
			})
			w.Write([]byte("{}"))
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", "FOLDER", zaptest.NewLogger(t))

	if err := c.UpdateDocument(context.Background(), "t-1", "<p>new</p>"); err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}

	if len(edits) != 2 {
		t.Fatalf("expected 2 edit requests, got %d", len(edits))
	}
	// first existing section deleted, then new content appended
	if edits[0].location != "5" || edits[0].sectionID != "sec-a" {
		t.Errorf("bad delete edit: %+v", edits[0])
	}
	if edits[1].location != "0" || edits[1].content != "<p>new</p>" {
		t.Errorf("bad append edit: %+v", edits[1])
	}
}

func TestUploadBlob(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/blob/t-1" {
			t.Errorf("unexpected request: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("blob")
		if err != nil {
			t.Fatalf("missing blob field: %v", err)
		}
		defer file.Close()
		if header.Filename != "pic.png" {
			t.Errorf("unexpected filename: %q", header.Filename)
		}
		if got := header.Header.Get("Content-Type"); got != "image/png" {
			t.Errorf("unexpected part content type: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id":  "blob-7",
			"url": "/blob/t-1/blob-7",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", "FOLDER", zaptest.NewLogger(t))

	id, blobURL, err := c.UploadBlob(context.Background(), "t-1", "pic.png", "image/png", []byte("pngdata"))
	if err != nil {
		t.Fatalf("UploadBlob failed: %v", err)
	}
	if id != "blob-7" || blobURL != "/blob/t-1/blob-7" {
		t.Errorf("unexpected blob response: %q %q", id, blobURL)
	}
}

func TestDownloadBlob(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/1/blob/t-1/blob-7" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("blob contents"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", "FOLDER", zaptest.NewLogger(t))

	data, err := c.DownloadBlob(context.Background(), "t-1", "blob-7")
	if err != nil {
		t.Fatalf("DownloadBlob failed: %v", err)
	}
	if string(data) != "blob contents" {
		t.Errorf("unexpected blob contents: %q", string(data))
	}
}

func TestBlobURL(t *testing.T) {
	c := NewClient("https://quip.example.com/", "tok", "FOLDER", zaptest.NewLogger(t))
	if got := c.BlobURL("t-1", "blob-7"); got != "https://quip.example.com/blob/t-1/blob-7" {
		t.Errorf("unexpected blob url: %q", got)
	}
}

func TestErrorDescriptionSurfaced(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error_description": "token expired"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", "FOLDER", zaptest.NewLogger(t))

	_, _, err := c.GetDocument(context.Background(), "t-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "token expired"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not mention %q", err, want)
	}
}
