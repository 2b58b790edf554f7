package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/components/dashboard/commands"
	"github.com/goliatone/go-predify/components/dashboard/queries"
	"github.com/goliatone/go-predify/pkg/backend"
)

const maxBodyBytes = 1 << 20

// Handlers serves the seller pages and JSON endpoints on net/http.
type Handlers struct {
	Actions    Actions
	Controller *dashboard.Controller
	Broadcast  *dashboard.BroadcastHook
}

// Router mounts the handlers on a chi router behind the session middleware.
func (h *Handlers) Router(store sessions.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(WithSession(store))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/insights", http.StatusFound)
	})
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireLogin)
		r.Get("/insights", h.InsightsPage)
		r.Get("/insights/_data", h.InsightsData)
		r.Post("/insights/card-analysis", h.CardAnalysis)
		r.Post("/insights/preferences", h.SavePreferences)
		r.Get("/insights/events", h.Events)
		r.Get("/insights/ws", h.WebSocket)
		r.Get("/settings", h.SettingsPage)
		r.Post("/settings", h.SaveSettings)
		r.Get("/profile", h.ProfilePage)
		r.Get("/chat", h.ChatHistory)
		r.Post("/chat", h.Chat)
		r.Get("/lessons/{topic}", h.LessonPage)
	})
	return r
}

func (h *Handlers) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Actions.Authenticated != nil && h.Actions.Authenticated(r.Context()) {
			ctx := dashboard.WithActor(r.Context(), dashboard.Actor{
				SessionID: SessionID(r),
				RequestID: middleware.GetReqID(r.Context()),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		h.fail(w, r, ErrNotAuthenticated)
	})
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	return h.Actions.Viewer(SessionID(r), r.Header.Get("Accept-Language"))
}

// LoginPage renders the sign-in form.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	notice := ""
	if r.URL.Query().Get("expired") != "" {
		notice = SessionExpiredNotice
	}
	h.html(w, r, func(out io.Writer) error { return h.Controller.RenderLogin(notice, "", out) })
}

// Login exchanges the posted seller token for a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := SellerToken(r.Header.Get("Content-Type"), body)
	if err == nil {
		err = h.Actions.Login.Execute(r.Context(), commands.LoginInput{SessionID: SessionID(r), SellerToken: token})
	}
	if wantsJSON(r) {
		if err != nil {
			writeJSON(w, StatusFor(err), formErrorBody(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	if err != nil {
		h.htmlStatus(w, r, StatusFor(err), func(out io.Writer) error { return h.Controller.RenderLogin("", FormMessage(err), out) })
		return
	}
	http.Redirect(w, r, "/insights", http.StatusSeeOther)
}

// Logout clears the session's tokens and transcript.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Actions.Logout.Execute(r.Context(), commands.LogoutInput{SessionID: SessionID(r)}); err != nil {
		h.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// InsightsPage renders the cards for ?sku= (or the first product).
func (h *Handlers) InsightsPage(w http.ResponseWriter, r *http.Request) {
	viewer := h.viewer(r)
	sku := r.URL.Query().Get("sku")
	h.html(w, r, func(out io.Writer) error { return h.Controller.RenderInsights(r.Context(), viewer, sku, out) })
}

// InsightsData returns the insights payload as JSON.
func (h *Handlers) InsightsData(w http.ResponseWriter, r *http.Request) {
	payload, err := h.Controller.InsightsPayload(r.Context(), h.viewer(r), r.URL.Query().Get("sku"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// CardAnalysis proxies a card brief request.
func (h *Handlers) CardAnalysis(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req dashboard.CardAnalysisRequest
	if err := DecodeJSON(body, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	analysis, err := h.Actions.CardAnalysis.Query(r.Context(), queries.CardAnalysisInput{Viewer: h.viewer(r), Request: req})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// SavePreferences stores the viewer's card order and hidden cards.
func (h *Handlers) SavePreferences(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var input commands.SaveCardPreferencesInput
	if err := DecodeJSON(body, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	input.Viewer = h.viewer(r)
	if err := h.Actions.SavePreferences.Execute(r.Context(), input); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

// Events streams the viewer's snapshot changes as server-sent events.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	if h.Broadcast == nil {
		http.NotFound(w, r)
		return
	}
	h.Broadcast.ServeSSE(w, r, h.viewer(r).Key())
}

// WebSocket pushes the viewer's snapshot changes over a websocket.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Broadcast == nil {
		http.NotFound(w, r)
		return
	}
	h.Broadcast.ServeWebSocket(w, r, h.viewer(r).Key())
}

// SettingsPage renders the settings form.
func (h *Handlers) SettingsPage(w http.ResponseWriter, r *http.Request) {
	viewer := h.viewer(r)
	h.html(w, r, func(out io.Writer) error { return h.Controller.RenderSettings(r.Context(), viewer, "", "", out) })
}

// SaveSettings validates and forwards a settings patch.
func (h *Handlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	viewer := h.viewer(r)
	patch, err := SettingsPatch(r.Header.Get("Content-Type"), body)
	if err == nil {
		err = h.Actions.SaveSettings.Execute(r.Context(), commands.SaveSettingsInput{Viewer: viewer, Patch: patch})
	}
	if wantsJSON(r) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		settings, qerr := h.Actions.Settings.Query(r.Context(), struct{}{})
		if qerr != nil {
			h.fail(w, r, qerr)
			return
		}
		writeJSON(w, http.StatusOK, settings)
		return
	}
	if err != nil && RequiresLogin(err) {
		h.fail(w, r, err)
		return
	}
	notice, formErr, status := "Settings saved.", "", http.StatusOK
	if err != nil {
		notice, formErr, status = "", FormMessage(err), StatusFor(err)
	}
	h.htmlStatus(w, r, status, func(out io.Writer) error {
		return h.Controller.RenderSettings(r.Context(), viewer, notice, formErr, out)
	})
}

// ProfilePage renders the shop profile.
func (h *Handlers) ProfilePage(w http.ResponseWriter, r *http.Request) {
	viewer := h.viewer(r)
	h.html(w, r, func(out io.Writer) error { return h.Controller.RenderProfile(r.Context(), viewer, out) })
}

// ChatHistory returns the session's transcript.
func (h *Handlers) ChatHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Actions.ChatHistory.Query(r.Context(), SessionID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// Chat sends a message to the assistant.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var payload commands.SendChatInput
	if err := DecodeJSON(body, &payload); err != nil {
		h.fail(w, r, err)
		return
	}
	history, err := h.Actions.ChatReply(r.Context(), SessionID(r), payload.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := map[string]any{"history": history}
	if len(history) > 0 {
		resp["reply"] = history[len(history)-1]
	}
	writeJSON(w, http.StatusOK, resp)
}

// LessonPage renders a micro-lesson, or returns it as JSON.
func (h *Handlers) LessonPage(w http.ResponseWriter, r *http.Request) {
	lesson, topics, err := h.Actions.LessonPage(r.Context(), chi.URLParam(r, "topic"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, lesson)
		return
	}
	viewer := h.viewer(r)
	h.html(w, r, func(out io.Writer) error { return h.Controller.RenderLesson(viewer, lesson, topics, out) })
}

func (h *Handlers) html(w http.ResponseWriter, r *http.Request, render func(io.Writer) error) {
	h.htmlStatus(w, r, http.StatusOK, render)
}

func (h *Handlers) htmlStatus(w http.ResponseWriter, r *http.Request, status int, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// fail answers JSON clients with the error envelope and sends browsers whose
// session is gone back to the login page.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if RequiresLogin(err) && !wantsJSON(r) && r.Method == http.MethodGet {
		http.Redirect(w, r, LoginURL(err), http.StatusSeeOther)
		return
	}
	writeJSON(w, StatusFor(err), ErrorBody(err))
}

// LoginURL is where a browser is sent after err ended its session. Only a
// session the backend rejected carries the expired notice.
func LoginURL(err error) string {
	if backend.IsSessionExpired(err) {
		return "/login?" + url.Values{"expired": {"1"}}.Encode()
	}
	return "/login"
}

// FormMessage is the text shown on a form after a failed submission.
func FormMessage(err error) string {
	msg, _ := ErrorBody(err)["error"].(string)
	return msg
}

func formErrorBody(err error) map[string]any {
	return map[string]any{"error": FormMessage(err)}
}

func wantsJSON(r *http.Request) bool {
	return IsJSON(r.Header.Get("Content-Type")) || IsJSON(r.Header.Get("Accept")) || r.URL.Path == "/insights/_data"
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
