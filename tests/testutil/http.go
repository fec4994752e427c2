package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContext is the gin context a handler ran with and what it wrote.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
}

func (tc *TestContext) ResponseBody() []byte {
	return tc.Recorder.Body.Bytes()
}

// HTTPTestCase describes one call of a handler. Method defaults to GET and
// Path to "/". A string Body is sent as is; anything else is JSON encoded.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           any
	Params         gin.Params
	Headers        map[string]string
	ExpectedStatus int
	Validate       func(t *testing.T, tc *TestContext)
}

func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase calls handler directly, without routing or middleware,
// and checks the status when ExpectedStatus is set.
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = tc.request(t)
	c.Params = tc.Params

	handler(c)
	c.Writer.WriteHeaderNow()

	out := &TestContext{Context: c, Recorder: w}
	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, w.Code, "body: %s", w.Body.String())
	}
	if tc.Validate != nil {
		tc.Validate(t, out)
	}
	return out
}

func (tc HTTPTestCase) request(t *testing.T) *http.Request {
	var body io.Reader
	switch b := tc.Body.(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	method, path := tc.Method, tc.Path
	if method == "" {
		method = http.MethodGet
	}
	if path == "" {
		path = "/"
	}

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tc.Headers {
		req.Header.Set(k, v)
	}
	return req
}

// JSONResponseAs decodes the response body into T.
func JSONResponseAs[T any](t *testing.T, tc *TestContext) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &out), "body: %s", tc.ResponseBody())
	return out
}

// AssertErrorResponse checks for the error envelope carrying code.
func AssertErrorResponse(t *testing.T, tc *TestContext, code string) {
	t.Helper()

	var env struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &env), "body: %s", tc.ResponseBody())
	assert.False(t, env.Success)
	require.NotNil(t, env.Error, "no error object in %s", tc.ResponseBody())
	assert.Equal(t, code, env.Error.Code)
}
