package gorouter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	router "github.com/goliatone/go-router"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/components/dashboard/commands"
	"github.com/goliatone/go-predify/components/dashboard/httpapi"
	"github.com/goliatone/go-predify/components/dashboard/queries"
	"github.com/goliatone/go-predify/pkg/session"
)

const sessionLocal = "predify.session_id"

// Config wires go-router with the seller controller, actions, and hooks.
type Config[T any] struct {
	Router     router.Router[T]
	Controller *dashboard.Controller
	Actions    httpapi.Actions
	Broadcast  *dashboard.BroadcastHook
	BasePath   string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
}

// Register mounts the seller pages, JSON endpoints, and the insights
// websocket on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	if cfg.Actions.Login == nil || cfg.Actions.Snapshot == nil {
		return errors.New("gorouter: actions are required")
	}
	h := &handlers[T]{cfg: cfg, base: strings.TrimRight(cfg.BasePath, "/")}
	group := cfg.Router
	if h.base != "" {
		group = cfg.Router.Group(h.base)
	}

	group.Get("/", router.WrapHandler(func(ctx router.Context) error {
		return ctx.Redirect(h.base+"/insights", http.StatusFound)
	}))
	group.Get("/login", router.WrapHandler(h.loginPage))
	group.Post("/login", router.WrapHandler(h.login))
	group.Post("/logout", router.WrapHandler(h.logout))

	group.Get("/insights", h.protected(h.insightsPage))
	group.Get("/insights/_data", h.protected(h.insightsData))
	group.Post("/insights/card-analysis", h.protected(h.cardAnalysis))
	group.Post("/insights/preferences", h.protected(h.savePreferences))
	group.Get("/settings", h.protected(h.settingsPage))
	group.Post("/settings", h.protected(h.saveSettings))
	group.Get("/profile", h.protected(h.profilePage))
	group.Get("/chat", h.protected(h.chatHistory))
	group.Post("/chat", h.protected(h.chat))
	group.Get("/lessons/:topic", h.protected(h.lessonPage))

	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast)
	}
	return nil
}

type handlers[T any] struct {
	cfg  Config[T]
	base string
}

// sessionContext returns the request context bound to the browser session,
// issuing a new session cookie when the request carries none.
func (h *handlers[T]) sessionContext(ctx router.Context) (context.Context, string) {
	if id, ok := ctx.Locals(sessionLocal).(string); ok && id != "" {
		return session.ContextWithID(ctx.Context(), id), id
	}
	id := SessionCookie(ctx.Header("Cookie"))
	if id == "" {
		id = session.NewID()
		cookie := &http.Cookie{
			Name:     httpapi.CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.cfg.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		}
		ctx.SetHeader("Set-Cookie", cookie.String())
	}
	ctx.Locals(sessionLocal, id)
	return session.ContextWithID(ctx.Context(), id), id
}

// SessionCookie extracts the session id from a Cookie header.
func SessionCookie(header string) string {
	if header == "" {
		return ""
	}
	cookies, err := http.ParseCookie(header)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == httpapi.CookieName {
			return c.Value
		}
	}
	return ""
}

func (h *handlers[T]) viewer(ctx router.Context, sessionID string) dashboard.ViewerContext {
	return h.cfg.Actions.Viewer(sessionID, ctx.Header("Accept-Language"))
}

func (h *handlers[T]) protected(next func(router.Context, context.Context, string) error) router.HandlerFunc {
	return router.WrapHandler(func(ctx router.Context) error {
		reqCtx, id := h.sessionContext(ctx)
		if h.cfg.Actions.Authenticated == nil || !h.cfg.Actions.Authenticated(reqCtx) {
			return h.fail(ctx, httpapi.ErrNotAuthenticated)
		}
		reqCtx = dashboard.WithActor(reqCtx, dashboard.Actor{SessionID: id, RequestID: ctx.Header("X-Request-Id")})
		return next(ctx, reqCtx, id)
	})
}

func (h *handlers[T]) loginPage(ctx router.Context) error {
	h.sessionContext(ctx)
	notice := ""
	if ctx.Query("expired") != "" {
		notice = httpapi.SessionExpiredNotice
	}
	return h.html(ctx, http.StatusOK, func(out io.Writer) error { return h.cfg.Controller.RenderLogin(notice, "", out) })
}

func (h *handlers[T]) login(ctx router.Context) error {
	reqCtx, id := h.sessionContext(ctx)
	token, err := httpapi.SellerToken(ctx.Header("Content-Type"), ctx.Body())
	if err == nil {
		err = h.cfg.Actions.Login.Execute(reqCtx, commands.LoginInput{SessionID: id, SellerToken: token})
	}
	if wantsJSON(ctx) {
		if err != nil {
			return ctx.JSON(httpapi.StatusFor(err), map[string]any{"error": httpapi.FormMessage(err)})
		}
		return ctx.JSON(http.StatusOK, map[string]any{"ok": true})
	}
	if err != nil {
		return h.html(ctx, httpapi.StatusFor(err), func(out io.Writer) error {
			return h.cfg.Controller.RenderLogin("", httpapi.FormMessage(err), out)
		})
	}
	return ctx.Redirect(h.base+"/insights", http.StatusSeeOther)
}

func (h *handlers[T]) logout(ctx router.Context) error {
	reqCtx, id := h.sessionContext(ctx)
	if err := h.cfg.Actions.Logout.Execute(reqCtx, commands.LogoutInput{SessionID: id}); err != nil {
		return h.fail(ctx, err)
	}
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, map[string]any{"ok": true})
	}
	return ctx.Redirect(h.base+"/login", http.StatusSeeOther)
}

func (h *handlers[T]) insightsPage(ctx router.Context, reqCtx context.Context, id string) error {
	viewer := h.viewer(ctx, id)
	sku := ctx.Query("sku")
	return h.html(ctx, http.StatusOK, func(out io.Writer) error {
		return h.cfg.Controller.RenderInsights(reqCtx, viewer, sku, out)
	})
}

func (h *handlers[T]) insightsData(ctx router.Context, reqCtx context.Context, id string) error {
	payload, err := h.cfg.Controller.InsightsPayload(reqCtx, h.viewer(ctx, id), ctx.Query("sku"))
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, payload)
}

func (h *handlers[T]) cardAnalysis(ctx router.Context, reqCtx context.Context, id string) error {
	var req dashboard.CardAnalysisRequest
	if err := httpapi.DecodeJSON(ctx.Body(), &req); err != nil {
		return h.fail(ctx, err)
	}
	analysis, err := h.cfg.Actions.CardAnalysis.Query(reqCtx, queries.CardAnalysisInput{Viewer: h.viewer(ctx, id), Request: req})
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, analysis)
}

func (h *handlers[T]) savePreferences(ctx router.Context, reqCtx context.Context, id string) error {
	var input commands.SaveCardPreferencesInput
	if err := httpapi.DecodeJSON(ctx.Body(), &input); err != nil {
		return h.fail(ctx, err)
	}
	input.Viewer = h.viewer(ctx, id)
	if err := h.cfg.Actions.SavePreferences.Execute(reqCtx, input); err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"status": "saved"})
}

func (h *handlers[T]) settingsPage(ctx router.Context, reqCtx context.Context, id string) error {
	viewer := h.viewer(ctx, id)
	return h.html(ctx, http.StatusOK, func(out io.Writer) error {
		return h.cfg.Controller.RenderSettings(reqCtx, viewer, "", "", out)
	})
}

func (h *handlers[T]) saveSettings(ctx router.Context, reqCtx context.Context, id string) error {
	viewer := h.viewer(ctx, id)
	patch, err := httpapi.SettingsPatch(ctx.Header("Content-Type"), ctx.Body())
	if err == nil {
		err = h.cfg.Actions.SaveSettings.Execute(reqCtx, commands.SaveSettingsInput{Viewer: viewer, Patch: patch})
	}
	if wantsJSON(ctx) {
		if err != nil {
			return h.fail(ctx, err)
		}
		settings, qerr := h.cfg.Actions.Settings.Query(reqCtx, struct{}{})
		if qerr != nil {
			return h.fail(ctx, qerr)
		}
		return ctx.JSON(http.StatusOK, settings)
	}
	if err != nil && httpapi.RequiresLogin(err) {
		return h.fail(ctx, err)
	}
	notice, formErr, status := "Settings saved.", "", http.StatusOK
	if err != nil {
		notice, formErr, status = "", httpapi.FormMessage(err), httpapi.StatusFor(err)
	}
	return h.html(ctx, status, func(out io.Writer) error {
		return h.cfg.Controller.RenderSettings(reqCtx, viewer, notice, formErr, out)
	})
}

func (h *handlers[T]) profilePage(ctx router.Context, reqCtx context.Context, id string) error {
	viewer := h.viewer(ctx, id)
	return h.html(ctx, http.StatusOK, func(out io.Writer) error {
		return h.cfg.Controller.RenderProfile(reqCtx, viewer, out)
	})
}

func (h *handlers[T]) chatHistory(ctx router.Context, reqCtx context.Context, id string) error {
	history, err := h.cfg.Actions.ChatHistory.Query(reqCtx, id)
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"history": history})
}

func (h *handlers[T]) chat(ctx router.Context, reqCtx context.Context, id string) error {
	var payload commands.SendChatInput
	if err := httpapi.DecodeJSON(ctx.Body(), &payload); err != nil {
		return h.fail(ctx, err)
	}
	history, err := h.cfg.Actions.ChatReply(reqCtx, id, payload.Text)
	if err != nil {
		return h.fail(ctx, err)
	}
	resp := map[string]any{"history": history}
	if len(history) > 0 {
		resp["reply"] = history[len(history)-1]
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (h *handlers[T]) lessonPage(ctx router.Context, reqCtx context.Context, id string) error {
	lesson, topics, err := h.cfg.Actions.LessonPage(reqCtx, ctx.Param("topic"))
	if err != nil {
		return h.fail(ctx, err)
	}
	if wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, lesson)
	}
	viewer := h.viewer(ctx, id)
	return h.html(ctx, http.StatusOK, func(out io.Writer) error {
		return h.cfg.Controller.RenderLesson(viewer, lesson, topics, out)
	})
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket("/insights/ws", cfg, func(ws router.WebSocketContext) error {
		viewer := httpapi.ViewerFor(SessionCookie(ws.Header("Cookie")), "")
		events, cancel := hook.SubscribeViewer(viewer.Key())
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func (h *handlers[T]) html(ctx router.Context, status int, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return h.fail(ctx, err)
	}
	ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		ctx.Status(status)
	}
	return ctx.Send(buf.Bytes())
}

func (h *handlers[T]) fail(ctx router.Context, err error) error {
	if httpapi.RequiresLogin(err) && !wantsJSON(ctx) && ctx.Method() == http.MethodGet {
		return ctx.Redirect(h.base+httpapi.LoginURL(err), http.StatusSeeOther)
	}
	return ctx.JSON(httpapi.StatusFor(err), httpapi.ErrorBody(err))
}

func wantsJSON(ctx router.Context) bool {
	return httpapi.IsJSON(ctx.Header("Content-Type")) ||
		httpapi.IsJSON(ctx.Header("Accept")) ||
		strings.HasSuffix(ctx.Path(), "/insights/_data")
}
