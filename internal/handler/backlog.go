// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
	"backlog-manager/internal/pkg/lock"
	"backlog-manager/internal/service"
	"backlog-manager/internal/view"
)

// Backlog is the part of service.BacklogService the handlers use.
type Backlog interface {
	List(ctx context.Context, key string) ([]model.Game, error)
	Create(ctx context.Context, key string, in model.NewGame) (model.Game, error)
	Update(ctx context.Context, key, id string, u model.GameUpdate) (model.Game, error)
	Delete(ctx context.Context, key, id string) (bool, error)
	MarkComplete(ctx context.Context, key, id string) (model.Game, error)
	StartPlaying(ctx context.Context, key, id string) (model.Game, error)
	Move(ctx context.Context, key, id, column string) (model.Game, bool, error)
	View(ctx context.Context, key string, f backlog.Filter) ([]model.Game, error)
	Stats(ctx context.Context, key string) (model.Stats, error)
}

const helpText = "🎮 Backlog Manager\n\n" +
	"Commands:\n" +
	"/add Title | Platform | status | price | notes - add a game\n" +
	"/list [status:<s>] [platform:<p>] [text] - list games\n" +
	"/board - show the board\n" +
	"/stats - show stats\n" +
	"/done <id> - mark complete\n" +
	"/play <id> - start playing\n" +
	"/move <id> <status> - move to a column\n" +
	"/edit <id> field=value; ... - edit title, platform, status, price, notes\n" +
	"/delete <id> - remove a game\n\n" +
	"Statuses: not_started, in_progress, completed\n" +
	"Platforms: PC, PlayStation, Xbox, Nintendo Switch, Mobile, Other"

// Reply is a response to a command: text and optional buttons.
type Reply struct {
	Text   string
	Markup *tele.ReplyMarkup
}

func text(s string) Reply { return Reply{Text: s} }

func card(g model.Game, prefix string) Reply {
	msg := view.FormatGame(g)
	if prefix != "" {
		msg = prefix + "\n\n" + msg
	}
	return Reply{Text: msg, Markup: view.BuildGameKeyboard(g)}
}

// BacklogHandler handles backlog commands. Every Telegram user has a private backlog.
type BacklogHandler struct {
	svc     Backlog
	baseKey string
}

// NewBacklogHandler creates a new BacklogHandler.
func NewBacklogHandler(svc Backlog, baseKey string) *BacklogHandler {
	return &BacklogHandler{svc: svc, baseKey: baseKey}
}

// KeyFor returns the backlog key of a Telegram user.
func (h *BacklogHandler) KeyFor(userID int64) string {
	return h.baseKey + ":tg:" + strconv.FormatInt(userID, 10)
}

func send(c tele.Context, r Reply) error {
	if r.Markup != nil {
		return c.Send(r.Text, r.Markup)
	}
	return c.Send(r.Text)
}

func payload(c tele.Context) string {
	if m := c.Message(); m != nil {
		return m.Payload
	}
	return ""
}

// command wraps a reply builder as a telebot handler.
func (h *BacklogHandler) command(fn func(ctx context.Context, key string, c tele.Context) Reply) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		return send(c, fn(context.Background(), h.KeyFor(sender.ID), c))
	}
}

// HandleHelp handles /start and /help.
func (h *BacklogHandler) HandleHelp(c tele.Context) error {
	return c.Send(helpText)
}

// HandleAdd handles /add.
func (h *BacklogHandler) HandleAdd(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, c tele.Context) Reply {
		return h.Add(ctx, key, payload(c))
	})(c)
}

// HandleList handles /list.
func (h *BacklogHandler) HandleList(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, c tele.Context) Reply {
		return h.List(ctx, key, c.Args())
	})(c)
}

// HandleBoard handles /board.
func (h *BacklogHandler) HandleBoard(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, _ tele.Context) Reply {
		return h.Board(ctx, key)
	})(c)
}

// HandleStats handles /stats.
func (h *BacklogHandler) HandleStats(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, _ tele.Context) Reply {
		return h.Stats(ctx, key)
	})(c)
}

// HandleDone handles /done <id>.
func (h *BacklogHandler) HandleDone(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, c tele.Context) Reply {
		return h.SetStatus(ctx, key, firstArg(c), model.StatusCompleted)
	})(c)
}

// HandlePlay handles /play <id>.
func (h *BacklogHandler) HandlePlay(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, c tele.Context) Reply {
		return h.SetStatus(ctx, key, firstArg(c), model.StatusInProgress)
	})(c)
}

// HandleMove handles /move <id> <status>.
func (h *BacklogHandler) HandleMove(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, c tele.Context) Reply {
		args := c.Args()
		if len(args) < 2 {
			return text("❌ Usage: /move <id> <status>\nExample: /move 3c4d5e6f in_progress")
		}
		return h.Move(ctx, key, args[0], strings.Join(args[1:], " "))
	})(c)
}

// HandleEdit handles /edit <id> field=value; ...
func (h *BacklogHandler) HandleEdit(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, c tele.Context) Reply {
		return h.Edit(ctx, key, payload(c))
	})(c)
}

// HandleDelete handles /delete <id>.
func (h *BacklogHandler) HandleDelete(c tele.Context) error {
	return h.command(func(ctx context.Context, key string, c tele.Context) Reply {
		return h.Delete(ctx, key, firstArg(c))
	})(c)
}

func firstArg(c tele.Context) string {
	if args := c.Args(); len(args) > 0 {
		return args[0]
	}
	return ""
}

// HandleCallback handles game card buttons.
func (h *BacklogHandler) HandleCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}

	cb, err := ParseCallback(callback.Data)
	if err != nil {
		log.Debug().Str("data", callback.Data).Msg("Ignoring unknown callback")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown action"})
	}

	res := h.Callback(context.Background(), h.KeyFor(sender.ID), cb)
	if err := c.Respond(&tele.CallbackResponse{Text: res.Notice}); err != nil {
		log.Warn().Err(err).Msg("Failed to answer callback")
	}
	if res.Unchanged {
		return nil
	}
	r := res.Reply
	if r.Markup != nil {
		return c.Edit(r.Text, r.Markup)
	}
	return c.Edit(r.Text)
}

// Add creates a game from "/add" arguments.
func (h *BacklogHandler) Add(ctx context.Context, key, args string) Reply {
	in, err := ParseAddArgs(args)
	if err != nil {
		if errors.Is(err, ErrMissingTitle) {
			return text("❌ Usage: /add Title | Platform | status | price | notes\nExample: /add Hades | PC | in_progress | 24.99")
		}
		return text("❌ " + describeError(err))
	}

	g, err := h.svc.Create(ctx, key, in)
	if err != nil {
		var dup *service.DuplicateError
		if errors.As(err, &dup) {
			return text(view.FormatDuplicate(dup.Existing))
		}
		return h.failure(key, "add", err)
	}
	return card(g, "✅ Added to your backlog")
}

// List renders the games matching "/list" arguments.
func (h *BacklogHandler) List(ctx context.Context, key string, args []string) Reply {
	f, err := ParseListArgs(args)
	if err != nil {
		return text("❌ " + describeError(err))
	}
	all, err := h.svc.List(ctx, key)
	if err != nil {
		return h.failure(key, "list", err)
	}
	return text(view.FormatGameList(f.Apply(all), f, len(all)))
}

// Board renders the three columns.
func (h *BacklogHandler) Board(ctx context.Context, key string) Reply {
	games, err := h.svc.List(ctx, key)
	if err != nil {
		return h.failure(key, "board", err)
	}
	return text(view.FormatBoard(games))
}

// Stats renders the summary.
func (h *BacklogHandler) Stats(ctx context.Context, key string) Reply {
	st, err := h.svc.Stats(ctx, key)
	if err != nil {
		return h.failure(key, "stats", err)
	}
	return text(view.FormatStats(st))
}

// SetStatus runs a quick action on the game ref points to.
func (h *BacklogHandler) SetStatus(ctx context.Context, key, ref string, status model.Status) Reply {
	id, r, ok := h.resolve(ctx, key, ref)
	if !ok {
		return r
	}

	var (
		g   model.Game
		err error
	)
	if status == model.StatusCompleted {
		g, err = h.svc.MarkComplete(ctx, key, id)
	} else {
		g, err = h.svc.StartPlaying(ctx, key, id)
	}
	if err != nil {
		return h.failure(key, "status", err)
	}
	return card(g, "👍 "+status.Label())
}

// Move drops the game ref points to on a column.
func (h *BacklogHandler) Move(ctx context.Context, key, ref, column string) Reply {
	status, err := model.ParseStatus(column)
	if err != nil {
		return text("❌ " + describeError(err))
	}
	id, r, ok := h.resolve(ctx, key, ref)
	if !ok {
		return r
	}

	g, moved, err := h.svc.Move(ctx, key, id, string(status))
	if err != nil {
		return h.failure(key, "move", err)
	}
	if !moved {
		return card(g, "ℹ️ Already in "+status.Label())
	}
	return card(g, "➡ Moved to "+status.Label())
}

// Edit applies "/edit" arguments.
func (h *BacklogHandler) Edit(ctx context.Context, key, args string) Reply {
	ref, u, err := ParseEditArgs(args)
	if err != nil {
		return text("❌ " + describeError(err) + "\nUsage: /edit <id> status=completed; notes=Beat it")
	}
	id, r, ok := h.resolve(ctx, key, ref)
	if !ok {
		return r
	}

	g, err := h.svc.Update(ctx, key, id, u)
	if err != nil {
		return h.failure(key, "edit", err)
	}
	return card(g, "✏️ Updated")
}

// Delete removes the game ref points to.
func (h *BacklogHandler) Delete(ctx context.Context, key, ref string) Reply {
	id, r, ok := h.resolve(ctx, key, ref)
	if !ok {
		return r
	}
	if _, err := h.svc.Delete(ctx, key, id); err != nil {
		return h.failure(key, "delete", err)
	}
	return text("🗑 Deleted")
}

// CallbackResult is the outcome of a button press.
type CallbackResult struct {
	Reply  Reply
	Notice string
	// Unchanged is set when the card would render exactly as before;
	// Telegram rejects such edits.
	Unchanged bool
}

// Callback performs a button press and returns the new message plus a short notice.
func (h *BacklogHandler) Callback(ctx context.Context, key string, cb Callback) CallbackResult {
	var (
		g     model.Game
		moved = true
		err   error
	)
	switch cb.Prefix {
	case view.CallbackDone:
		g, err = h.svc.MarkComplete(ctx, key, cb.ID)
	case view.CallbackPlay:
		g, err = h.svc.StartPlaying(ctx, key, cb.ID)
	case view.CallbackMove:
		g, moved, err = h.svc.Move(ctx, key, cb.ID, cb.Column)
	case view.CallbackDelete:
		if _, err = h.svc.Delete(ctx, key, cb.ID); err != nil {
			return CallbackResult{Reply: h.failure(key, "delete", err), Notice: "❌ Failed"}
		}
		return CallbackResult{Reply: text("🗑 Deleted"), Notice: "Deleted"}
	default:
		return CallbackResult{Reply: text("❌ Unknown action")}
	}

	if errors.Is(err, service.ErrGameNotFound) {
		return CallbackResult{Reply: text("This game is no longer in your backlog."), Notice: "Not found"}
	}
	if err != nil {
		return CallbackResult{Reply: h.failure(key, "callback", err), Notice: "❌ Failed"}
	}
	if !moved {
		return CallbackResult{Reply: card(g, ""), Notice: "Already in " + g.Status.Label(), Unchanged: true}
	}
	return CallbackResult{Reply: card(g, ""), Notice: g.Status.Label()}
}

// resolve finds the game ref refers to: a full id or a unique id suffix as shown on cards.
func (h *BacklogHandler) resolve(ctx context.Context, key, ref string) (string, Reply, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", text("❌ Please give the game id shown on its card, e.g. /done 3c4d5e6f"), false
	}

	games, err := h.svc.List(ctx, key)
	if err != nil {
		return "", h.failure(key, "resolve", err), false
	}

	var matches []string
	for _, g := range games {
		if g.ID == ref {
			return g.ID, Reply{}, true
		}
		if strings.HasSuffix(g.ID, ref) {
			matches = append(matches, g.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", text(fmt.Sprintf("❌ No game with id %s", ref)), false
	case 1:
		return matches[0], Reply{}, true
	default:
		return "", text(fmt.Sprintf("❌ %d games match %s, use more characters", len(matches), ref)), false
	}
}

func (h *BacklogHandler) failure(key, op string, err error) Reply {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return text("❌ Game not found")
	case errors.Is(err, lock.ErrLockTimeout):
		return text("⏳ Your backlog is busy, please try again")
	case isValidation(err):
		return text("❌ " + describeError(err))
	}
	log.Error().Err(err).Str("key", key).Str("op", op).Msg("Backlog command failed")
	return text("❌ Something went wrong, please try again later")
}

func isValidation(err error) bool {
	return errors.Is(err, model.ErrEmptyTitle) ||
		errors.Is(err, model.ErrInvalidStatus) ||
		errors.Is(err, model.ErrInvalidPlatform) ||
		errors.Is(err, model.ErrNegativePrice)
}

func describeError(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
