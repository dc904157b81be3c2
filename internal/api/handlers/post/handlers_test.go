package post

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"Quillpad/internal/api/middleware"
	"Quillpad/internal/core/attachments"
	"Quillpad/internal/core/posts"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testUserID = "8a4c0f5e-1b2d-4c3e-9f6a-7b8c9d0e1f23"
	testPostID = "3e2d1c0b-9a8f-4e7d-6c5b-4a3f2e1d0c9b"
)

// MockPostService is a mock implementation of posts.Service
type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) ListPosts(ctx context.Context, ownerID string, params posts.ListParams) ([]*posts.Post, error) {
	args := m.Called(ctx, ownerID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*posts.Post), args.Error(1)
}

func (m *MockPostService) GetPost(ctx context.Context, ownerID, postID string) (*posts.Post, error) {
	args := m.Called(ctx, ownerID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posts.Post), args.Error(1)
}

func (m *MockPostService) CreatePost(ctx context.Context, req posts.CreatePostRequest) (*posts.Post, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posts.Post), args.Error(1)
}

func (m *MockPostService) UpdatePost(ctx context.Context, req posts.UpdatePostRequest) (*posts.Post, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*posts.Post), args.Error(1)
}

func (m *MockPostService) DeletePost(ctx context.Context, ownerID, postID string) error {
	args := m.Called(ctx, ownerID, postID)
	return args.Error(0)
}

type formImage struct {
	filename    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, image *formImage) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="`+image.filename+`"`)
		header.Set("Content-Type", image.contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

// authedRequest builds a request carrying the test user and an optional {id} route param
func authedRequest(method, target string, body *bytes.Buffer, contentType, postID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	ctx := middleware.SetTestUserID(req.Context(), testUserID)
	if postID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", postID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func samplePost() *posts.Post {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &posts.Post{ID: testPostID, OwnerID: testUserID, Title: "Hello", Content: "World", CreatedAt: now, UpdatedAt: now}
}

func TestHandleList(t *testing.T) {
	svc := new(MockPostService)
	svc.On("ListPosts", mock.Anything, testUserID, posts.ListParams{Page: 2, Limit: 5}).
		Return([]*posts.Post{samplePost()}, nil)

	w := httptest.NewRecorder()
	NewListHandler(svc).HandleList(w, authedRequest(http.MethodGet, "/posts?page=2&limit=5", nil, "", ""))

	require.Equal(t, http.StatusOK, w.Code)
	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, testPostID, got[0]["id"])
	assert.Equal(t, testUserID, got[0]["ownerId"])
	assert.Contains(t, got[0], "attachmentUrl")
	assert.Nil(t, got[0]["attachmentUrl"])
}

func TestHandleList_EmptyIsArray(t *testing.T) {
	svc := new(MockPostService)
	svc.On("ListPosts", mock.Anything, testUserID, posts.ListParams{}).Return([]*posts.Post{}, nil)

	w := httptest.NewRecorder()
	NewListHandler(svc).HandleList(w, authedRequest(http.MethodGet, "/posts", nil, "", ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestHandleList_NonNumericQueryUsesDefaults(t *testing.T) {
	svc := new(MockPostService)
	svc.On("ListPosts", mock.Anything, testUserID, posts.ListParams{Page: 0, Limit: 0}).Return([]*posts.Post{}, nil)

	w := httptest.NewRecorder()
	NewListHandler(svc).HandleList(w, authedRequest(http.MethodGet, "/posts?page=two&limit=ten", nil, "", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestParseIntParam(t *testing.T) {
	assert.Equal(t, 0, parseIntParam(""))
	assert.Equal(t, 0, parseIntParam("two"))
	assert.Equal(t, 7, parseIntParam("7"))
	assert.Equal(t, -3, parseIntParam("-3"))
	assert.Equal(t, math.MaxInt, parseIntParam("99999999999999999999"))
	assert.Equal(t, math.MinInt, parseIntParam("-99999999999999999999"))
}

func TestHandleList_StoreFailure(t *testing.T) {
	svc := new(MockPostService)
	svc.On("ListPosts", mock.Anything, testUserID, mock.Anything).Return(nil, errors.New("pq: connection refused"))

	w := httptest.NewRecorder()
	NewListHandler(svc).HandleList(w, authedRequest(http.MethodGet, "/posts", nil, "", ""))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "StoreFailure", errorOf(t, w))
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestHandlers_RequireUser(t *testing.T) {
	svc := new(MockPostService)
	w := httptest.NewRecorder()
	NewListHandler(svc).HandleList(w, httptest.NewRequest(http.MethodGet, "/posts", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleGet(t *testing.T) {
	svc := new(MockPostService)
	svc.On("GetPost", mock.Anything, testUserID, testPostID).Return(samplePost(), nil)
	svc.On("GetPost", mock.Anything, testUserID, "someone-elses").Return(nil, posts.ErrNotFound)

	w := httptest.NewRecorder()
	NewGetHandler(svc).HandleGet(w, authedRequest(http.MethodGet, "/posts/"+testPostID, nil, "", testPostID))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	NewGetHandler(svc).HandleGet(w, authedRequest(http.MethodGet, "/posts/someone-elses", nil, "", "someone-elses"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFoundOrForbidden", errorOf(t, w))
}

func TestHandleCreate_WithImage(t *testing.T) {
	svc := new(MockPostService)
	img := &formImage{filename: "cat.png", contentType: "image/png", data: []byte("png-bytes")}
	url := "https://cdn.example/cat.png"

	svc.On("CreatePost", mock.Anything, mock.MatchedBy(func(req posts.CreatePostRequest) bool {
		return req.OwnerID == testUserID &&
			req.Title == "Hello" &&
			req.Content == "World" &&
			req.Attachment != nil &&
			req.Attachment.Filename == "cat.png" &&
			req.Attachment.MimeType == "image/png" &&
			bytes.Equal(req.Attachment.Data, img.data)
	})).Return(&posts.Post{ID: testPostID, OwnerID: testUserID, Title: "Hello", Content: "World", AttachmentURL: &url}, nil)

	body, ct := multipartBody(t, map[string]string{"title": "Hello", "content": "World"}, img)
	w := httptest.NewRecorder()
	NewCreateHandler(svc).HandleCreate(w, authedRequest(http.MethodPost, "/posts", body, ct, ""))

	require.Equal(t, http.StatusOK, w.Code)
	var got posts.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.AttachmentURL)
	assert.Equal(t, url, *got.AttachmentURL)
	svc.AssertExpectations(t)
}

func TestHandleCreate_IgnoresClientOwner(t *testing.T) {
	svc := new(MockPostService)
	svc.On("CreatePost", mock.Anything, mock.MatchedBy(func(req posts.CreatePostRequest) bool {
		return req.OwnerID == testUserID && req.Attachment == nil
	})).Return(samplePost(), nil)

	body, ct := multipartBody(t, map[string]string{"title": "t", "content": "c", "ownerId": "intruder"}, nil)
	w := httptest.NewRecorder()
	NewCreateHandler(svc).HandleCreate(w, authedRequest(http.MethodPost, "/posts", body, ct, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandleCreate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "validation", err: posts.NewValidationError("title", "title is required"), wantStatus: http.StatusBadRequest, wantError: "ValidationFailed"},
		{name: "bad image", err: attachments.ErrUnsupportedFormat, wantStatus: http.StatusBadRequest, wantError: "ValidationFailed"},
		{name: "image too large", err: attachments.ErrImageTooLarge, wantStatus: http.StatusRequestEntityTooLarge, wantError: "RequestTooLarge"},
		{name: "upload failed", err: attachments.ErrUploadFailed, wantStatus: http.StatusBadGateway, wantError: "UploadFailed"},
		{name: "store failure", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: "StoreFailure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPostService)
			svc.On("CreatePost", mock.Anything, mock.Anything).Return(nil, tt.err)

			body, ct := multipartBody(t, map[string]string{"title": "t", "content": "c"}, nil)
			w := httptest.NewRecorder()
			NewCreateHandler(svc).HandleCreate(w, authedRequest(http.MethodPost, "/posts", body, ct, ""))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, errorOf(t, w))
		})
	}
}

func TestHandleCreate_NotMultipart(t *testing.T) {
	svc := new(MockPostService)
	body := bytes.NewBufferString(`{"title":"t","content":"c"}`)

	w := httptest.NewRecorder()
	NewCreateHandler(svc).HandleCreate(w, authedRequest(http.MethodPost, "/posts", body, "application/json", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestHandleCreate_BodyTooLarge(t *testing.T) {
	svc := new(MockPostService)
	img := &formImage{filename: "big.jpg", contentType: "image/jpeg", data: make([]byte, MaxMultipartBytes+1)}
	body, ct := multipartBody(t, map[string]string{"title": "t", "content": "c"}, img)

	w := httptest.NewRecorder()
	NewCreateHandler(svc).HandleCreate(w, authedRequest(http.MethodPost, "/posts", body, ct, ""))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "RequestTooLarge", errorOf(t, w))
	svc.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestHandleUpdate(t *testing.T) {
	svc := new(MockPostService)
	svc.On("UpdatePost", mock.Anything, posts.UpdatePostRequest{
		OwnerID: testUserID, PostID: testPostID, Title: "New", Content: "Body",
	}).Return(samplePost(), nil)

	body, ct := multipartBody(t, map[string]string{"title": "New", "content": "Body"}, nil)
	w := httptest.NewRecorder()
	NewUpdateHandler(svc).HandleUpdate(w, authedRequest(http.MethodPut, "/posts/"+testPostID, body, ct, testPostID))

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestHandleUpdate_NotOwned(t *testing.T) {
	svc := new(MockPostService)
	svc.On("UpdatePost", mock.Anything, mock.Anything).Return(nil, posts.ErrNotFound)

	body, ct := multipartBody(t, map[string]string{"title": "t", "content": "c"}, nil)
	w := httptest.NewRecorder()
	NewUpdateHandler(svc).HandleUpdate(w, authedRequest(http.MethodPut, "/posts/"+testPostID, body, ct, testPostID))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFoundOrForbidden", errorOf(t, w))
}

func TestHandleDelete(t *testing.T) {
	svc := new(MockPostService)
	svc.On("DeletePost", mock.Anything, testUserID, testPostID).Return(nil).Once()
	svc.On("DeletePost", mock.Anything, testUserID, testPostID).Return(posts.ErrNotFound).Once()

	w := httptest.NewRecorder()
	NewDeleteHandler(svc).HandleDelete(w, authedRequest(http.MethodDelete, "/posts/"+testPostID, nil, "", testPostID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Post deleted successfully")

	w = httptest.NewRecorder()
	NewDeleteHandler(svc).HandleDelete(w, authedRequest(http.MethodDelete, "/posts/"+testPostID, nil, "", testPostID))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
