package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Krish-Depani/ghost-ai-server/alerts"
	"github.com/Krish-Depani/ghost-ai-server/chat"
	"github.com/Krish-Depani/ghost-ai-server/controllers"
	"github.com/Krish-Depani/ghost-ai-server/database"
	"github.com/Krish-Depani/ghost-ai-server/export"
	"github.com/Krish-Depani/ghost-ai-server/models"
	"github.com/Krish-Depani/ghost-ai-server/otp"
	"github.com/Krish-Depani/ghost-ai-server/session"
	"github.com/Krish-Depani/ghost-ai-server/store"
	"github.com/Krish-Depani/ghost-ai-server/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sentMail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *recordingMailer) to(addr string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.To == addr {
			out = append(out, s)
		}
	}
	return out
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []alerts.Alert
}

func (a *recordingAlerter) NewDevice(ctx context.Context, alert alerts.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

type staticGeo struct{}

func (staticGeo) Lookup(ctx context.Context, ip string) string { return "Pune, India" }

type scriptedStream struct{ chunks []string }

func (s *scriptedStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *scriptedStream) Close() error { return nil }

type scriptedCompleter struct{ chunks []string }

func (c scriptedCompleter) Stream(ctx context.Context, messages []chat.Message) (chat.TokenStream, error) {
	return &scriptedStream{chunks: append([]string(nil), c.chunks...)}, nil
}

type fakeExporter struct {
	userID   string
	messages int
}

func (f *fakeExporter) Export(ctx context.Context, userID string, messages []models.Message) (string, error) {
	f.userID = userID
	f.messages = len(messages)
	return "https://s3.test/exports/link", nil
}

type testApp struct {
	t        *testing.T
	router   *gin.Engine
	store    *store.GormStore
	redis    *miniredis.Miniredis
	mailer   *recordingMailer
	alerter  *recordingAlerter
	exporter *fakeExporter
	google   *httptest.Server
}

type appOptions struct {
	completer  chat.Completer
	noExporter bool
	noGoogle   bool
}

func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	tokens := database.NewRedisClient(rc)

	app := &testApp{
		t:        t,
		store:    store.NewGormStore(db),
		redis:    mr,
		mailer:   &recordingMailer{},
		alerter:  &recordingAlerter{},
		exporter: &fakeExporter{},
	}

	log := zerolog.Nop()
	signer := utils.NewTokenSigner("test-secret")
	registrar := session.NewRegistrar(staticGeo{}, app.store, app.alerter, log)
	auth := controllers.NewAuthController(app.store, tokens, otp.NewRedisStore(rc, 10*time.Minute), app.mailer, registrar, time.Hour, false, log)

	var googleCfg *oauth2.Config
	userInfoURL := ""
	if !opts.noGoogle {
		app.google = newFakeGoogle(t)
		googleCfg = &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://app.test/auth/google/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:  app.google.URL + "/o/oauth2/auth",
				TokenURL: app.google.URL + "/token",
			},
			Scopes: []string{"openid", "email", "profile"},
		}
		userInfoURL = app.google.URL + "/userinfo"
	}
	oauth := controllers.NewOAuthController(googleCfg, userInfoURL, app.store, signer, auth, "http://app.test", log)

	var exp export.Exporter = app.exporter
	if opts.noExporter {
		exp = nil
	}
	user := controllers.NewUserController(app.store, tokens, app.mailer, signer, exp, "http://app.test", time.Hour, false, log)
	relay := chat.NewRelay(opts.completer, nil, nil, app.store, log)

	app.router = gin.New()
	SetupRoutes(app.router, Controllers{
		Auth:  auth,
		OAuth: oauth,
		User:  user,
		Chat:  controllers.NewChatController(relay, log),
	})
	return app
}

// newFakeGoogle serves the token and userinfo endpoints. The authorization
// code doubles as the profile email.
func newFakeGoogle(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			_ = r.ParseForm()
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "at-" + r.Form.Get("code"),
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "/userinfo":
			email := strings.TrimPrefix(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "), "at-")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"email":          email,
				"email_verified": true,
				"name":           "Google " + email,
				"picture":        "https://lh3.test/" + email,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type reqOpts struct {
	cookie *http.Cookie
	extra  []*http.Cookie
	ip     string
	ua     string
}

func (a *testApp) do(method, path, body string, o reqOpts) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if o.cookie != nil {
		req.AddCookie(o.cookie)
	}
	for _, c := range o.extra {
		req.AddCookie(c)
	}
	if o.ip != "" {
		req.Header.Set("X-Forwarded-For", o.ip)
	}
	if o.ua != "" {
		req.Header.Set("User-Agent", o.ua)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", name)
	return nil
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	return findCookie(t, w, "session_token")
}

func (a *testApp) otp(purpose, email string) string {
	a.t.Helper()
	code, err := a.redis.Get("otp:" + purpose + ":" + email)
	require.NoError(a.t, err)
	return code
}

// signUp registers and verifies an account, then logs in.
func (a *testApp) signUp(email, password string, o reqOpts) *http.Cookie {
	a.t.Helper()
	w := a.do(http.MethodPost, "/auth/register", `{"name":"Asha","email":"`+email+`","password":"`+password+`"}`, reqOpts{})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/auth/verify", `{"email":"`+email+`","otp":"`+a.otp(otp.PurposeSignup, email)+`"}`, reqOpts{})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	return a.login(email, password, o)
}

func (a *testApp) login(email, password string, o reqOpts) *http.Cookie {
	a.t.Helper()
	w := a.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, o)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(a.t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) controllers.AuthResponse {
	t.Helper()
	var resp controllers.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

var linkToken = regexp.MustCompile(`/auth/user/email/verify/([A-Za-z0-9_\-.]+)`)
