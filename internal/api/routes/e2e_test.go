package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"Quillpad/internal/api/middleware"
	"Quillpad/internal/auth"
	"Quillpad/internal/core/attachments"
	"Quillpad/internal/core/posts"
	"Quillpad/internal/core/users"
	"Quillpad/internal/db/memory"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testEnv is the real router wired to in-memory stores and a fake image host
type testEnv struct {
	server  *httptest.Server
	uploads *atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	uploads := new(atomic.Int32)
	imageHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("transformation") != "c_limit,w_1000,h_1000" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"missing transformation"}}`))
			return
		}
		n := uploads.Add(1)
		_, _ = fmt.Fprintf(w, `{"secure_url":"https://res.example/demo/image/upload/v1/%d.png"}`, n)
	}))
	t.Cleanup(imageHost.Close)

	issuer, err := auth.NewTokenIssuer([]byte("e2e-secret"), time.Hour)
	require.NoError(t, err)
	userService := users.NewUserService(memory.NewUserRepository(), users.NewBcryptHasher(bcrypt.MinCost), issuer)

	uploader, err := attachments.NewCloudinaryUploader(attachments.CloudinaryConfig{
		APIBase: imageHost.URL, CloudName: "demo", APIKey: "k", APISecret: "s", Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	attachmentService, err := attachments.NewService(attachments.NewProcessor(), uploader, attachments.Limit(1000, 1000))
	require.NoError(t, err)

	postService, err := posts.NewPostService(memory.NewPostRepository(), attachmentService)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(CORSMiddleware([]string{"*"}))
	RegisterHealthRoute(r)
	require.NoError(t, RegisterAuthRoutes(r, userService))
	RegisterPostRoutes(r, postService, middleware.NewBearerAuthMiddleware(userService))

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testEnv{server: server, uploads: uploads}
}

func (e *testEnv) do(t *testing.T, method, path, token, contentType string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) signup(t *testing.T, username, password string) string {
	t.Helper()
	creds := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)

	resp, _ := e.do(t, http.MethodPost, "/register", "", "application/json", strings.NewReader(creds))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/login", "", "application/json", strings.NewReader(creds))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login users.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	return login.Token
}

func postForm(t *testing.T, title, content string, img []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", title))
	require.NoError(t, w.WriteField("content", content))
	if img != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="photo.png"`)
		header.Set("Content-Type", "image/png")
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePost(t *testing.T, body []byte) posts.Post {
	t.Helper()
	var p posts.Post
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func TestE2E_Health(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestE2E_AliceAndBob(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.signup(t, "alice", "pw1")
	bobToken := env.signup(t, "bob", "pw2")

	// Alice creates a post
	body, ct := postForm(t, "Hello", "World", nil)
	resp, data := env.do(t, http.MethodPost, "/posts", aliceToken, ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	created := decodePost(t, data)
	assert.Nil(t, created.AttachmentURL)
	assert.NotEmpty(t, created.ID)

	// Alice sees it
	resp, data = env.do(t, http.MethodGet, "/posts", aliceToken, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []posts.Post
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	// Bob sees nothing and cannot touch it
	resp, data = env.do(t, http.MethodGet, "/posts", bobToken, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(data))

	resp, _ = env.do(t, http.MethodGet, "/posts/"+created.ID, bobToken, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, ct = postForm(t, "pwned", "x", nil)
	resp, _ = env.do(t, http.MethodPut, "/posts/"+created.ID, bobToken, ct, body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// An image from a non-owner is never sent to the host
	body, ct = postForm(t, "pwned", "x", pngBytes(t, 20, 20))
	resp, _ = env.do(t, http.MethodPut, "/posts/"+created.ID, bobToken, ct, body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.EqualValues(t, 0, env.uploads.Load())

	resp, _ = env.do(t, http.MethodDelete, "/posts/"+created.ID, bobToken, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Alice deletes it
	resp, _ = env.do(t, http.MethodDelete, "/posts/"+created.ID, aliceToken, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/posts/"+created.ID, aliceToken, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestE2E_Attachments(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "carol", "pw")

	body, ct := postForm(t, "With image", "body", pngBytes(t, 1600, 800))
	resp, data := env.do(t, http.MethodPost, "/posts", token, ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	created := decodePost(t, data)
	require.NotNil(t, created.AttachmentURL)
	firstURL := *created.AttachmentURL

	// Update without an image keeps the attachment
	body, ct = postForm(t, "Edited", "body", nil)
	resp, data = env.do(t, http.MethodPut, "/posts/"+created.ID, token, ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	updated := decodePost(t, data)
	assert.Equal(t, "Edited", updated.Title)
	require.NotNil(t, updated.AttachmentURL)
	assert.Equal(t, firstURL, *updated.AttachmentURL)

	// Update with an image replaces it
	body, ct = postForm(t, "Edited", "body", pngBytes(t, 20, 20))
	resp, data = env.do(t, http.MethodPut, "/posts/"+created.ID, token, ct, body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	replaced := decodePost(t, data)
	require.NotNil(t, replaced.AttachmentURL)
	assert.NotEqual(t, firstURL, *replaced.AttachmentURL)
	assert.EqualValues(t, 2, env.uploads.Load())

	// A non-image is rejected before reaching the host
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "t"))
	require.NoError(t, w.WriteField("content", "c"))
	part, err := w.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("just text"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, _ = env.do(t, http.MethodPost, "/posts", token, w.FormDataContentType(), &buf)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.EqualValues(t, 2, env.uploads.Load())
}

func TestE2E_Pagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup(t, "dave", "pw")

	for i := 0; i < 12; i++ {
		body, ct := postForm(t, fmt.Sprintf("post-%02d", i), "c", nil)
		resp, _ := env.do(t, http.MethodPost, "/posts", token, ct, body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var page1, page2, page3 []posts.Post
	_, data := env.do(t, http.MethodGet, "/posts?page=1&limit=10", token, "", nil)
	require.NoError(t, json.Unmarshal(data, &page1))
	_, data = env.do(t, http.MethodGet, "/posts?page=2&limit=10", token, "", nil)
	require.NoError(t, json.Unmarshal(data, &page2))
	_, data = env.do(t, http.MethodGet, "/posts?page=3&limit=10", token, "", nil)
	require.NoError(t, json.Unmarshal(data, &page3))

	require.Len(t, page1, 10)
	require.Len(t, page2, 2)
	assert.Empty(t, page3)
	assert.Equal(t, "post-11", page1[0].Title)
	assert.Equal(t, "post-00", page2[1].Title)

	for _, page := range []string{"9223372036854775807", "922337203685477582", "99999999999999999999"} {
		resp, data := env.do(t, http.MethodGet, "/posts?page="+page+"&limit=10", token, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "page=%s", page)
		assert.JSONEq(t, "[]", string(data), "page=%s", page)
	}
}

func TestE2E_AuthFailures(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "erin", "right")

	resp, data := env.do(t, http.MethodPost, "/register", "", "application/json", strings.NewReader(`{"username":"erin","password":"x"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "DuplicateUsername")

	resp, data = env.do(t, http.MethodPost, "/login", "", "application/json", strings.NewReader(`{"username":"erin","password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(data), "InvalidCredentials")

	resp, _ = env.do(t, http.MethodGet, "/posts", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data = env.do(t, http.MethodGet, "/posts", "not.a.token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(data), `"Unauthorized"`)
}

func TestE2E_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/posts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}
