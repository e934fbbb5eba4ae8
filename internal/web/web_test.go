package web_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/guessgame/internal/factory"
	"github.com/mcoot/guessgame/internal/testutil"
	"github.com/mcoot/guessgame/internal/web"
	"github.com/mcoot/guessgame/internal/web/middleware"
)

// webTestServer provides a test server for web interface testing
type webTestServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
	cookies *cookieJar
}

// newWebTestServer creates a new test server wired to fake external services
func newWebTestServer(t *testing.T, opts ...func(*web.RouterConfig)) *webTestServer {
	t.Helper()

	app := factory.NewTestApp(t)

	cfg := web.RouterConfig{
		Logger:          testutil.NopLogger(),
		IdentityManager: app.IdentityManager,
		GameController:  app.GameController,
		Random:          app.MockRandom,
		Session:         middleware.SessionOptions{MaxAge: 3600},
		StaticDir:       "", // No static files unless a test asks for them
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	router := web.NewRouter(cfg)

	return &webTestServer{
		t:       t,
		handler: router,
		app:     app,
		cookies: newCookieJar(),
	}
}

// withBrowser returns a server sharing the app but with its own cookies
func (ts *webTestServer) withBrowser() *webTestServer {
	return &webTestServer{
		t:       ts.t,
		handler: ts.handler,
		app:     ts.app,
		cookies: newCookieJar(),
	}
}

// request makes an HTTP request and returns the response
func (ts *webTestServer) request(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	// Add cookies from jar
	ts.cookies.addTo(req)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	// Extract Set-Cookie headers into jar
	ts.cookies.extract(rr)

	return rr
}

// get makes a GET request
func (ts *webTestServer) get(target string) *httptest.ResponseRecorder {
	return ts.request(http.MethodGet, target, nil)
}

// post makes a POST request with form data
func (ts *webTestServer) post(target string, form url.Values) *httptest.ResponseRecorder {
	return ts.request(http.MethodPost, target, form)
}

// home loads the game page and parses it
func (ts *webTestServer) home() *goquery.Document {
	ts.t.Helper()
	rr := ts.get("/")
	require.Equal(ts.t, http.StatusOK, rr.Code)
	return parseHTML(rr.Body)
}

// parseHTML parses the response body as HTML
func parseHTML(r io.Reader) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		panic(err)
	}
	return doc
}

// cookieJar maintains cookies across requests (like a browser would)
type cookieJar struct {
	cookies map[string]*http.Cookie
}

func newCookieJar() *cookieJar {
	return &cookieJar{
		cookies: make(map[string]*http.Cookie),
	}
}

// addTo adds all cookies to the request
func (j *cookieJar) addTo(req *http.Request) {
	for _, cookie := range j.cookies {
		req.AddCookie(cookie)
	}
}

// extract extracts Set-Cookie headers from response
func (j *cookieJar) extract(rr *httptest.ResponseRecorder) {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.MaxAge < 0 {
			// Cookie being deleted
			delete(j.cookies, cookie.Name)
		} else {
			j.cookies[cookie.Name] = cookie
		}
	}
}

// sessionID returns the browser session cookie value, if any
func (j *cookieJar) sessionID() string {
	if c, ok := j.cookies[middleware.SessionCookieName]; ok {
		return c.Value
	}
	return ""
}

// Helper functions for common test operations

// beginLogin posts the login button and returns the provider URL
func (ts *webTestServer) beginLogin() string {
	ts.t.Helper()
	rr := ts.post("/auth/login", nil)
	require.Equal(ts.t, http.StatusSeeOther, rr.Code, "Expected redirect to identity provider")
	location := rr.Header().Get("Location")
	require.True(ts.t, strings.HasPrefix(location, ts.app.Provider.URL()), "Expected redirect to provider, got %q", location)
	return location
}

// callback plays the provider redirecting back with q
func (ts *webTestServer) callback(q url.Values) *httptest.ResponseRecorder {
	return ts.get("/auth/callback?" + q.Encode())
}

// login runs the full login flow through the provider
func (ts *webTestServer) login() {
	ts.t.Helper()
	q, err := ts.app.Provider.Approve(ts.beginLogin())
	require.NoError(ts.t, err)

	rr := ts.callback(q)
	require.Equal(ts.t, http.StatusSeeOther, rr.Code, "Expected redirect after login callback")
	require.Equal(ts.t, "/", rr.Header().Get("Location"))
}

// startGame posts the start button
func (ts *webTestServer) startGame() {
	ts.t.Helper()
	rr := ts.post("/game/start", nil)
	require.Equal(ts.t, http.StatusSeeOther, rr.Code, "Expected redirect after starting game")
}

// guess posts the guess form
func (ts *webTestServer) guess(value string) *httptest.ResponseRecorder {
	return ts.post("/game/guess", url.Values{"guess": {value}})
}

// followRedirect follows a redirect and returns the response
func (ts *webTestServer) followRedirect(rr *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	ts.t.Helper()
	location := rr.Header().Get("Location")
	require.NotEmpty(ts.t, location, "Expected Location header for redirect")
	return ts.get(location)
}

// Assertion helpers

// assertContainsElement asserts that the document contains an element matching the selector
func assertContainsElement(t *testing.T, doc *goquery.Document, selector string) {
	t.Helper()
	if doc.Find(selector).Length() == 0 {
		t.Errorf("Expected to find element matching %q, but none found", selector)
	}
}

// assertNotContainsElement asserts that the document does not contain an element matching the selector
func assertNotContainsElement(t *testing.T, doc *goquery.Document, selector string) {
	t.Helper()
	if doc.Find(selector).Length() > 0 {
		t.Errorf("Expected NOT to find element matching %q, but found %d", selector, doc.Find(selector).Length())
	}
}

// assertContainsText asserts that the element matching the selector contains the text
func assertContainsText(t *testing.T, doc *goquery.Document, selector, text string) {
	t.Helper()
	el := doc.Find(selector)
	if el.Length() == 0 {
		t.Errorf("Expected to find element matching %q, but none found", selector)
		return
	}
	if !strings.Contains(el.Text(), text) {
		t.Errorf("Expected element %q to contain %q, but got %q", selector, text, el.Text())
	}
}
