package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/assistant"
	"github.com/goliatone/go-predify/pkg/backend"
	"github.com/goliatone/go-predify/pkg/session"
)

type namedRenderer struct{}

func (namedRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	payload, _ := json.Marshal(data)
	body := "<!-- " + name + " -->" + string(payload)
	if len(out) > 0 && out[0] != nil {
		_, _ = io.WriteString(out[0], body)
	}
	return body, nil
}

type fixture struct {
	server  *httptest.Server
	client  *http.Client
	backend *backend.MockClient
	store   session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mock := backend.NewMockClient(backend.DemoData(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	f := buildFixture(t, mock, mock, session.NewMemoryStore(), namedRenderer{})
	f.backend = mock
	return f
}

// buildFixture serves the handlers over client, reading insights from source.
func buildFixture(t *testing.T, client backend.Client, source dashboard.InsightSource, store session.Store, renderer dashboard.Renderer) *fixture {
	t.Helper()
	manager := session.NewManager(store)
	service := dashboard.NewService(dashboard.Options{
		Insights: source,
		Settings: client,
		Profiles: client,
		Analyzer: client,
	})
	bot := assistant.New(assistant.Options{Generator: assistant.GeneratorFunc(func(context.Context, assistant.Request) (string, error) {
		return "Keep an eye on margins.", nil
	})})
	actions, err := NewActions(Deps{Service: service, Auth: client, Sessions: manager, Assistant: bot})
	require.NoError(t, err)

	handlers := &Handlers{
		Actions: actions,
		Controller: dashboard.NewController(dashboard.ControllerOptions{
			Service:  actions.Pages(),
			Renderer: renderer,
			Escalate: RequiresLogin,
		}),
		Broadcast: dashboard.NewBroadcastHook(),
	}
	server := httptest.NewServer(handlers.Router(NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), CookieOptions{})))
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &fixture{server: server, client: httpClient, store: store}
}

func (f *fixture) get(t *testing.T, path string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) post(t *testing.T, path, contentType, body string) *http.Response {
	t.Helper()
	resp, err := f.client.Post(f.server.URL+path, contentType, strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	resp := f.post(t, "/login", "application/x-www-form-urlencoded", url.Values{"seller_token": {"demo"}}.Encode())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/insights", resp.Header.Get("Location"))
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/insights")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = f.get(t, "/insights/_data")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["reload"])
	assert.Equal(t, SessionExpiredMessage, body["error"])
}

func TestLoginThenInsights(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	resp := f.get(t, "/insights/_data")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "DK-1001", body["selected"])
	cards, ok := body["cards"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, cards)

	resp = f.get(t, "/insights/_data?sku=DK-2040")
	body = decode(t, resp)
	assert.Equal(t, "DK-2040", body["selected"])
	assert.Equal(t, "Ceramic Pour-Over Set", body["product_title"])
}

func TestInsightsDataShowsBackendFailure(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.FailKind(dashboard.InsightSpeedCompare, &backend.RemoteError{Status: 500, Body: "speed service down"})

	resp := f.get(t, "/insights/_data?sku=DK-1001")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["error"], "speed service down")
	assert.Empty(t, body["cards"])
}

func TestLoginFailureKeepsSessionEmpty(t *testing.T) {
	f := newFixture(t)
	resp := f.post(t, "/login", "application/json", `{"seller_token":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["error"], "seller token is required")

	resp = f.get(t, "/profile")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLogoutClearsTokens(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	resp := f.post(t, "/logout", "application/x-www-form-urlencoded", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = f.get(t, "/settings")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestSaveSettingsForm(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	resp := f.post(t, "/settings", "application/x-www-form-urlencoded", "lead_time_days=21&extra_cost_pct=")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings, err := f.backend.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21.0, settings.LeadTimeDays)
	assert.Equal(t, 5.0, settings.ExtraCostPct)

	resp = f.post(t, "/settings", "application/json", `{"lead_time_days": 900}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.post(t, "/settings", "application/x-www-form-urlencoded", "lead_time_days=soon")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatAndLessons(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	resp := f.post(t, "/chat", "application/json", `{"text":"How is my margin?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	reply, ok := body["reply"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Keep an eye on margins.", reply["text"])

	resp = f.get(t, "/chat")
	history, ok := decode(t, resp)["history"].([]any)
	require.True(t, ok)
	assert.Len(t, history, 2)

	resp = f.get(t, "/lessons/optimal-pricing", "Accept", "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "optimal-pricing", decode(t, resp)["Slug"])

	resp = f.get(t, "/lessons/astrology", "Accept", "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCardAnalysis(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	resp := f.post(t, "/insights/card-analysis", "application/json", `{"card_id":"breakeven","product_id":"DK-1001"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["analysis"], "breakeven")

	resp = f.post(t, "/insights/card-analysis", "application/json", `{"product_id":"DK-1001"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		&dashboard.ValidationError{Err: assistant.ErrEmptyMessage}: http.StatusBadRequest,
		backend.ErrMissingAccess:                                   http.StatusUnauthorized,
		ErrNotAuthenticated:                                        http.StatusUnauthorized,
		dashboard.ErrSuperseded:                                    http.StatusConflict,
		&backend.RemoteError{Status: 503}:                          http.StatusBadGateway,
		context.DeadlineExceeded:                                   http.StatusGatewayTimeout,
		assistant.ErrUnknownTopic:                                  http.StatusNotFound,
		backend.RejectLogin(&backend.RemoteError{Status: 401}):     http.StatusUnauthorized,
		backend.RejectLogin(&backend.RemoteError{Status: 400}):     http.StatusBadRequest,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestSettingsPatchForm(t *testing.T) {
	patch, err := SettingsPatch("application/x-www-form-urlencoded", []byte("slow_mover_min_speed=2.5&lead_time_days="))
	require.NoError(t, err)
	require.NotNil(t, patch.SlowMoverMinSpeed)
	assert.Equal(t, 2.5, *patch.SlowMoverMinSpeed)
	assert.Nil(t, patch.LeadTimeDays)
}

func TestViewerForLocale(t *testing.T) {
	assert.Equal(t, "fa", ViewerFor("s", "fa-IR,fa;q=0.9").Locale)
	assert.Equal(t, "en", ViewerFor("s", "de-DE").Locale)
	assert.Equal(t, "fa", Actions{Locale: "fa"}.Viewer("s", "").Locale)
}

func TestLoginURLMarksOnlyRejectedSessions(t *testing.T) {
	assert.Equal(t, "/login", LoginURL(ErrNotAuthenticated))
	assert.Equal(t, "/login", LoginURL(session.ErrNoSession))
	assert.Equal(t, "/login?expired=1", LoginURL(backend.ErrSessionExpired))
	assert.Equal(t, "/login?expired=1", LoginURL(&dashboard.InsightError{Kind: dashboard.InsightBreakeven, Err: backend.ErrSessionExpired}))
}

type countingStore struct {
	*session.MemoryStore
	clears atomic.Int32
}

func (s *countingStore) Clear(ctx context.Context, id string) error {
	s.clears.Add(1)
	return s.MemoryStore.Clear(ctx, id)
}

// sellerAPI answers like an analytics backend that no longer accepts the
// issued access tokens: logins and the product list work, insights are
// rejected with token_not_valid, and the seller token "revoked" cannot sign in.
func sellerAPI(t *testing.T, tokens backend.TokenSource) *backend.HTTPClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/seller/login/":
			var body struct {
				SellerToken string `json:"seller_token"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.SellerToken == "revoked" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail":"Invalid seller token"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access":"opaque","refresh":"r","seller_profile_preview":{"id":7,"shop_title":"Mug House"}}`)
		case "/insights/products/":
			_, _ = io.WriteString(w, `[{"product_id":"DK-1","title":"Mug"}]`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`)
		}
	}))
	t.Cleanup(server.Close)
	client, err := backend.NewHTTPClient(backend.HTTPConfig{BaseURL: server.URL, Tokens: tokens})
	require.NoError(t, err)
	return client
}

func TestExpiredTokenDuringInsightLoad(t *testing.T) {
	store := &countingStore{MemoryStore: session.NewMemoryStore()}
	client := sellerAPI(t, session.NewManager(store))
	renderer, err := dashboard.NewTemplateRenderer()
	require.NoError(t, err)
	f := buildFixture(t, client, client, store, renderer)

	f.login(t)
	resp := f.get(t, "/insights")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?expired=1", resp.Header.Get("Location"))
	assert.Equal(t, int32(1), store.clears.Load())

	resp = f.get(t, "/login?expired=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), SessionExpiredNotice)

	f.login(t)
	resp = f.get(t, "/insights/_data")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["reload"])
	assert.Equal(t, SessionExpiredMessage, body["error"])
	assert.Equal(t, int32(2), store.clears.Load())
}

func TestLoginRejectedByBackend(t *testing.T) {
	store := session.NewMemoryStore()
	client := sellerAPI(t, session.NewManager(store))
	f := buildFixture(t, client, client, store, namedRenderer{})

	resp := f.post(t, "/login", "application/json", `{"seller_token":"revoked"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Invalid seller token", body["error"])
	assert.NotContains(t, body, "reload")

	resp = f.post(t, "/login", "application/x-www-form-urlencoded", url.Values{"seller_token": {"revoked"}}.Encode())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.get(t, "/insights")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestInsightsPageRendersEmbeddedTemplates(t *testing.T) {
	mock := backend.NewMockClient(backend.DemoData(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	renderer, err := dashboard.NewTemplateRenderer()
	require.NoError(t, err)
	f := buildFixture(t, mock, mock, session.NewMemoryStore(), renderer)
	f.login(t)

	resp := f.get(t, "/insights?sku=DK-2040")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(raw)
	assert.Contains(t, page, `data-sku="DK-2040"`)
	assert.Contains(t, page, `<option value="DK-2040" selected>Ceramic Pour-Over Set</option>`)
	assert.Contains(t, page, `class="card" data-card-id=`)
	assert.NotContains(t, page, "panel-error")

	mock.FailKind(dashboard.InsightRestockTime, &backend.RemoteError{Status: 500, Body: "restock <down>"})
	resp = f.get(t, "/insights?sku=DK-1001")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "panel-error")
	assert.Contains(t, string(raw), "restock &lt;down&gt;")

	for _, path := range []string{"/settings", "/profile", "/lessons/optimal-pricing"} {
		resp = f.get(t, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

// gatedSource holds the profit margin request of one sku until its load is
// cancelled.
type gatedSource struct {
	*backend.MockClient
	sku     string
	entered chan struct{}
}

func (g *gatedSource) ProfitMargin(ctx context.Context, sku string) (dashboard.ProfitMargin, error) {
	if sku == g.sku {
		close(g.entered)
		<-ctx.Done()
		return dashboard.ProfitMargin{}, ctx.Err()
	}
	return g.MockClient.ProfitMargin(ctx, sku)
}

func TestSupersededInsightsShowNewestSelection(t *testing.T) {
	mock := backend.NewMockClient(backend.DemoData(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	source := &gatedSource{MockClient: mock, sku: "DK-1001", entered: make(chan struct{})}
	f := buildFixture(t, mock, source, session.NewMemoryStore(), namedRenderer{})
	f.login(t)

	first := make(chan *http.Response, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/insights/_data?sku=DK-1001", nil)
		resp, err := f.client.Do(req)
		if err != nil {
			first <- nil
			return
		}
		first <- resp
	}()
	<-source.entered

	resp := f.get(t, "/insights/_data?sku=DK-2040")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "DK-2040", decode(t, resp)["selected"])

	older := <-first
	require.NotNil(t, older)
	defer older.Body.Close()
	assert.Equal(t, http.StatusOK, older.StatusCode)
	body := decode(t, older)
	assert.Equal(t, "DK-2040", body["selected"])
	assert.Contains(t, []any{"loading", "ready"}, body["status"])
}
