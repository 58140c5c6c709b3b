// Package bot wires the Telegram command and callback surface.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"alertbot/internal/dispatch"
	"alertbot/internal/domain"
	"alertbot/internal/metrics"
	"alertbot/internal/report"
	containerruntime "alertbot/internal/runtime"
	"alertbot/internal/silence"
	"alertbot/internal/store"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

const unauthorizedText = "⛔ Unauthorized access!"

// Handlers binds chat updates to the dispatcher and report builder.
// Params: dispatcher, store, report builder, silence client, container
// runtime, allow-listed chat id, and clock.
// Returns: handler set for one bot client.
type Handlers struct {
	dispatcher *dispatch.Dispatcher
	store      *store.Store
	builder    *report.Builder
	silences   dispatch.SilenceCreator
	runtime    containerruntime.ContainerRuntime
	logger     *slog.Logger
	chatID     int64
	now        func() time.Time
	version    string
}

// NewHandlers creates the handler set.
// Params: collaborators; runtime and builder may be nil when disabled.
// Returns: initialized handlers; call Register to attach them.
func NewHandlers(
	dispatcher *dispatch.Dispatcher,
	registry *store.Store,
	builder *report.Builder,
	silences dispatch.SilenceCreator,
	runtime containerruntime.ContainerRuntime,
	logger *slog.Logger,
	chatID int64,
	now func() time.Time,
	version string,
) *Handlers {
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		dispatcher: dispatcher,
		store:      registry,
		builder:    builder,
		silences:   silences,
		runtime:    runtime,
		logger:     logger,
		chatID:     chatID,
		now:        now,
		version:    version,
	}
}

// Register attaches all command and callback handlers to the client.
// Params: bot client.
// Returns: nothing.
func (h *Handlers) Register(client *tgbot.Bot) {
	commands := map[string]func(context.Context, *tgbot.Bot, *tgmodels.Update){
		"/start":    h.handleStart,
		"/help":     h.handleHelp,
		"/status":   h.handleStatus,
		"/alerts":   h.handleAlerts,
		"/history":  h.handleHistory,
		"/up":       h.handleUp,
		"/down":     h.handleDown,
		"/ack":      h.handleDispatch,
		"/silence":  h.handleDispatch,
		"/snooze":   h.handleDispatch,
		"/escalate": h.handleDispatch,
		"/resolve":  h.handleDispatch,
		"/restart":  h.handleDispatch,
	}
	for prefix, handler := range commands {
		client.RegisterHandler(tgbot.HandlerTypeMessageText, prefix, tgbot.MatchTypePrefix, handler)
	}

	callbacks := map[string]func(context.Context, *tgbot.Bot, *tgmodels.Update){
		"ack_":          h.callbackAck,
		"silence_":      h.callbackSilence,
		"restart_":      h.callbackRestart,
		"clear_history": h.callbackClearHistory,
	}
	for prefix, handler := range callbacks {
		client.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, prefix, tgbot.MatchTypePrefix, handler)
	}
}

// authorized checks the chat against the allow list.
// Params: chat id from the update.
// Returns: true for the configured chat only.
func (h *Handlers) authorized(chatID int64) bool {
	return chatID == h.chatID
}

// reply sends an HTML reply to the update's chat.
// Params: context, client, chat id, and body.
// Returns: nothing; send failures are logged.
func (h *Handlers) reply(ctx context.Context, client *tgbot.Bot, chatID int64, text string) {
	_, err := client.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil && h.logger != nil {
		h.logger.Error("reply send failed", "error", err.Error())
	}
}

// handleDispatch routes slash commands through the dispatcher.
// Params: standard handler triple.
// Returns: nothing.
func (h *Handlers) handleDispatch(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, client, chatID, unauthorizedText)
		return
	}

	command, err := dispatch.Parse(update.Message.Text)
	if err != nil {
		h.reply(ctx, client, chatID, "❓ Unknown command. See /help")
		return
	}
	metrics.CommandsExecuted.WithLabelValues(commandName(update.Message.Text)).Inc()
	h.reply(ctx, client, chatID, h.dispatcher.Execute(ctx, command))
}

// handleStart sends the welcome message.
func (h *Handlers) handleStart(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, client, chatID, unauthorizedText)
		return
	}
	welcome := fmt.Sprintf("🖥️ <b>Alert Bot %s</b>\n\n"+
		"Monitoring and alert management.\n\n"+
		"📊 <b>Status:</b> /status\n"+
		"🔔 <b>Alerts:</b> /alerts\n"+
		"📋 <b>Commands:</b> /help", h.version)
	h.reply(ctx, client, chatID, welcome)
}

// handleHelp sends the command reference.
func (h *Handlers) handleHelp(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, client, chatID, unauthorizedText)
		return
	}
	help := "📋 <b>Commands</b>\n\n" +
		"<b>📊 System</b>\n" +
		"/status - System overview\n\n" +
		"<b>🐳 Containers</b>\n" +
		"/up [container] - Start\n" +
		"/down [container] - Stop\n" +
		"/restart [container] - Restart\n\n" +
		"<b>🚨 Incident</b>\n" +
		"/alerts - Active alerts\n" +
		"/ack [fingerprint] - Acknowledge\n" +
		"/silence [alert] [duration] - Silence\n" +
		"/snooze [duration] - Snooze all\n" +
		"/resolve [fingerprint] - Mark resolved\n" +
		"/escalate [fingerprint] - Escalate\n" +
		"/history - Alert history"
	h.reply(ctx, client, chatID, help)
}

// handleStatus renders the system status view.
func (h *Handlers) handleStatus(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, client, chatID, unauthorizedText)
		return
	}
	if h.builder == nil {
		h.reply(ctx, client, chatID, "❌ System monitoring is not available")
		return
	}
	body, err := h.builder.Status(ctx)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("status render failed", "error", err.Error())
		}
		h.reply(ctx, client, chatID, "❌ Failed to read system metrics")
		return
	}
	h.reply(ctx, client, chatID, body)
}

// handleAlerts lists firing alerts from the store.
func (h *Handlers) handleAlerts(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, client, chatID, unauthorizedText)
		return
	}
	h.reply(ctx, client, chatID, ActiveAlerts(h.store))
}

// handleHistory lists tracked alerts grouped by status.
func (h *Handlers) handleHistory(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, client, chatID, unauthorizedText)
		return
	}
	h.reply(ctx, client, chatID, History(h.store))
}

// handleUp starts a container.
func (h *Handlers) handleUp(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	h.containerAction(ctx, client, update, "start", func(ctx context.Context, name string) error {
		return h.runtime.Start(ctx, name)
	})
}

// handleDown stops a container.
func (h *Handlers) handleDown(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	h.containerAction(ctx, client, update, "stop", func(ctx context.Context, name string) error {
		return h.runtime.Stop(ctx, name)
	})
}

// containerAction runs a start/stop action against one container.
// Params: handler triple, verb for messages, and the action itself.
// Returns: nothing.
func (h *Handlers) containerAction(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update, verb string, action func(context.Context, string) error) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	if !h.authorized(chatID) {
		h.reply(ctx, client, chatID, unauthorizedText)
		return
	}

	fields := strings.Fields(update.Message.Text)
	if len(fields) < 2 {
		h.reply(ctx, client, chatID, fmt.Sprintf("❓ Usage: /%s &lt;container_name&gt;", commandName(update.Message.Text)))
		return
	}
	if h.runtime == nil {
		h.reply(ctx, client, chatID, "❌ Container runtime is not configured")
		return
	}

	name := fields[1]
	if err := action(ctx, name); err != nil {
		h.reply(ctx, client, chatID, fmt.Sprintf("❌ Failed to %s %s: %s", verb, name, err.Error()))
		return
	}
	h.reply(ctx, client, chatID, fmt.Sprintf("✅ <b>%s</b> %s requested", name, verb))
}

// callbackAck acknowledges one alert from an inline button.
func (h *Handlers) callbackAck(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	query, message := h.callbackContext(ctx, client, update)
	if query == nil {
		return
	}
	fingerprint := strings.TrimPrefix(query.Data, "ack_")
	h.store.Acknowledge(fingerprint)
	h.appendToMessage(ctx, client, message, "✅ <b>Alert acknowledged</b>")
}

// callbackSilence creates a silence from an inline button.
// Params: callback data "silence_1h_<fp>" or "silence_4h_<fp>".
// Returns: nothing.
func (h *Handlers) callbackSilence(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	query, message := h.callbackContext(ctx, client, update)
	if query == nil {
		return
	}
	parts := strings.SplitN(query.Data, "_", 3)
	if len(parts) != 3 {
		return
	}
	hours := 1
	if parts[1] == "4h" {
		hours = 4
	}
	fingerprint := parts[2]

	alertname := "unknown"
	if record, err := h.store.Get(fingerprint); err == nil {
		alertname = record.Alert.Name()
	}

	matchers := []silence.Matcher{silence.EqualMatcher(domain.LabelAlertName, alertname)}
	comment := fmt.Sprintf("Silenced via chat for %dh", hours)
	if _, err := h.silences.Create(ctx, matchers, time.Duration(hours)*time.Hour, comment); err != nil {
		if h.logger != nil {
			h.logger.Error("callback silence failed", "fingerprint", fingerprint, "error", err.Error())
		}
		h.appendToMessage(ctx, client, message, "❌ <b>Failed to create silence</b>")
		return
	}
	h.appendToMessage(ctx, client, message, fmt.Sprintf("🔕 <b>Alert silenced for %d hours</b>", hours))
}

// callbackRestart restarts a container from an inline button.
func (h *Handlers) callbackRestart(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	query, message := h.callbackContext(ctx, client, update)
	if query == nil {
		return
	}
	name := strings.TrimPrefix(query.Data, "restart_")
	if h.runtime == nil {
		h.appendToMessage(ctx, client, message, "❌ <b>Container runtime is not configured</b>")
		return
	}
	if err := h.runtime.Restart(ctx, name); err != nil {
		h.appendToMessage(ctx, client, message, fmt.Sprintf("❌ <b>Restart failed:</b> %s", err.Error()))
		return
	}
	h.appendToMessage(ctx, client, message, fmt.Sprintf("✅ <b>%s restarted</b>", name))
}

// callbackClearHistory clears the alert store from an inline button.
func (h *Handlers) callbackClearHistory(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) {
	query, message := h.callbackContext(ctx, client, update)
	if query == nil {
		return
	}
	h.store.Clear()
	metrics.SetStoreSize(0, 0)
	if message != nil {
		_, err := client.EditMessageText(ctx, &tgbot.EditMessageTextParams{
			ChatID:    message.Chat.ID,
			MessageID: message.ID,
			Text:      "🗑️ Alert history cleared",
		})
		if err != nil && h.logger != nil {
			h.logger.Error("edit message failed", "error", err.Error())
		}
	}
}

// callbackContext answers the callback and checks authorization.
// Params: handler triple.
// Returns: the callback query and its source message, or nil when the
// update is not an authorized callback.
func (h *Handlers) callbackContext(ctx context.Context, client *tgbot.Bot, update *tgmodels.Update) (*tgmodels.CallbackQuery, *tgmodels.Message) {
	if update.CallbackQuery == nil {
		return nil, nil
	}
	query := update.CallbackQuery
	message := query.Message.Message
	if message == nil || !h.authorized(message.Chat.ID) {
		h.answerCallback(ctx, client, query.ID, unauthorizedText)
		return nil, nil
	}
	h.answerCallback(ctx, client, query.ID, "")
	return query, message
}

// answerCallback acknowledges a callback query.
// Params: context, client, query id, and optional toast text.
// Returns: nothing; failures are logged.
func (h *Handlers) answerCallback(ctx context.Context, client *tgbot.Bot, queryID, text string) {
	_, err := client.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
	})
	if err != nil && h.logger != nil {
		h.logger.Error("answer callback failed", "error", err.Error())
	}
}

// appendToMessage appends a status line below the original message.
// Params: context, client, source message, and line to append.
// Returns: nothing; failures are logged.
func (h *Handlers) appendToMessage(ctx context.Context, client *tgbot.Bot, message *tgmodels.Message, line string) {
	if message == nil {
		return
	}
	_, err := client.EditMessageText(ctx, &tgbot.EditMessageTextParams{
		ChatID:    message.Chat.ID,
		MessageID: message.ID,
		Text:      message.Text + "\n\n" + line,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil && h.logger != nil {
		h.logger.Error("edit message failed", "error", err.Error())
	}
}

// commandName extracts the bare command word from a message.
// Params: raw message text.
// Returns: lowercase command without slash or bot suffix.
func commandName(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return ""
	}
	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return name
}
