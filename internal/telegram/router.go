package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"madipath/internal/core"
	"madipath/internal/metrics"
	"madipath/internal/view"
	"madipath/pkg"
)

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Analyzer produces an assessment for a symptom description.
type Analyzer interface {
	Analyze(ctx context.Context, symptoms string) (*pkg.Assessment, error)
}

// Router handles bot updates.  Each chat may have one analysis pending;
// analyses run in their own goroutine so a slow model call does not hold up
// other chats.
type Router struct {
	Bot    Sender
	Triage Analyzer
	Gate   *core.Gate
	Guard  *core.InflightGuard
	Links  view.Links
	Log    *zap.Logger

	// DrainTimeout bounds how long Poll waits for pending analyses after
	// its context ends.
	DrainTimeout time.Duration

	work       context.Context
	cancelWork context.CancelFunc
	wg         sync.WaitGroup
}

// NewRouter constructs a Router.
func NewRouter(bot Sender, triage Analyzer, gate *core.Gate, links view.Links, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	work, cancel := context.WithCancel(context.Background())
	return &Router{
		Bot:          bot,
		Triage:       triage,
		Gate:         gate,
		Guard:        &core.InflightGuard{},
		Links:        links,
		Log:          log,
		DrainTimeout: 10 * time.Second,
		work:         work,
		cancelWork:   cancel,
	}
}

// Wait blocks until every started analysis has replied.
func (r *Router) Wait() { r.wg.Wait() }

// Drain waits up to timeout for pending analyses.  When time runs out it
// cancels them and returns false without waiting further.
func (r *Router) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		r.cancelWork()
		r.Log.Warn("pending analyses cancelled", zap.Duration("waited", timeout))
		return false
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case msg.Location != nil:
		r.onLocation(cid, msg.Location)
	case strings.TrimSpace(msg.Text) != "":
		r.onSymptoms(ctx, cid, msg.Text)
	default:
		r.send(cid, "Please describe your symptoms in a text message.")
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if r.state(ctx) != pkg.ConnectionConnected {
			r.sendGate(cid, "Welcome to MadiPath. Sync the triage engine to begin.")
			return
		}
		r.send(cid, "Welcome to MadiPath. Describe your symptoms and I will assess how urgently you need care.\nCommands: /status, /connect")
	case "connect":
		r.connect(ctx, cid)
	case "status":
		r.send(cid, "Engine: "+string(r.state(ctx)))
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	switch cb.Data {
	case cbSyncEngine:
		r.connect(ctx, cb.Message.Chat.ID)
	}
}

func (r *Router) connect(ctx context.Context, cid int64) {
	if _, err := r.Gate.Connect(ctx); err != nil {
		r.sendGate(cid, "No API key could be selected. Add one on the server and try again.")
		return
	}
	r.send(cid, "Engine synced. Describe your symptoms.")
}

func (r *Router) onSymptoms(ctx context.Context, cid int64, text string) {
	if r.state(ctx) != pkg.ConnectionConnected {
		r.sendGate(cid, "The triage engine is not connected.")
		return
	}
	key := strconv.FormatInt(cid, 10)
	release, ok := r.Guard.Acquire(key)
	if !ok {
		metrics.ConcurrentRejections.WithLabelValues("telegram").Inc()
		r.send(cid, "Still analyzing your previous message. Please wait.")
		return
	}
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(cid, tgbotapi.ChatTyping))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release()
		r.analyze(r.work, cid, text)
	}()
}

func (r *Router) analyze(ctx context.Context, cid int64, text string) {
	a, err := r.Triage.Analyze(ctx, text)
	switch {
	case errors.Is(err, core.ErrEmptySymptoms):
		r.send(cid, "Please describe your symptoms.")
		return
	case err != nil:
		r.Gate.Observe(err)
		r.Log.Warn("analysis blocked by connection gate", zap.Int64("chat_id", cid), zap.Error(err))
		r.sendGate(cid, "The engine connection was reset. Please sync again.")
		return
	}

	rep := view.NewReport(a, r.Links)
	m := tgbotapi.NewMessage(cid, formatReport(rep))
	m.ParseMode = tgbotapi.ModeHTML
	m.DisableWebPagePreview = true
	m.ReplyMarkup = makeCareKeyboard(rep)
	if _, err := r.Bot.Send(m); err != nil {
		r.Log.Error("send report failed", zap.Int64("chat_id", cid), zap.String("request_id", a.RequestID), zap.Error(err))
		return
	}

	loc := tgbotapi.NewMessage(cid, "Share your location to find hospitals near you.")
	loc.ReplyMarkup = makeLocationKeyboard()
	_, _ = r.Bot.Send(loc)
}

func (r *Router) onLocation(cid int64, l *tgbotapi.Location) {
	url := r.Links.NearbyCare(&pkg.Coordinates{Latitude: l.Latitude, Longitude: l.Longitude})
	m := tgbotapi.NewMessage(cid, "Hospitals near you:")
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("Open map", url)))
	_, _ = r.Bot.Send(m)

	rm := tgbotapi.NewMessage(cid, "Location received.")
	rm.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, _ = r.Bot.Send(rm)
}

func (r *Router) state(ctx context.Context) pkg.ConnectionState {
	if st := r.Gate.State(); st != pkg.ConnectionUnknown {
		return st
	}
	return r.Gate.Check(ctx)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) sendGate(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = makeSyncKeyboard()
	_, _ = r.Bot.Send(msg)
}
