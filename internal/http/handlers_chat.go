package httpx

import (
	"net/http"

	"github.com/target/kb-assistant-web/internal/domain/model"
	apperrors "github.com/target/kb-assistant-web/internal/errors"
	"github.com/target/kb-assistant-web/internal/ports"
	"github.com/target/kb-assistant-web/internal/service"
)

// ChatPage shows the client's transcript and the question box.
func (h *UIHandlers) ChatPage(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	data := basePageData(r, metaFor(PageChat, "Assistant"))
	h.addChatData(data, c)
	h.renderPage(w, r, data)
}

func (h *UIHandlers) addChatData(data map[string]any, c *service.ClientSession) {
	msgs := c.Chat.Transcript()
	data["Messages"] = msgs
	data["SessionID"] = c.Chat.SessionID()
	if len(msgs) == 0 {
		data["QuickQuestions"] = service.QuickQuestions
	}
}

// ChatSend asks the assistant one question. htmx requests get the new
// messages swapped into the transcript; plain forms are redirected back.
func (h *UIHandlers) ChatSend(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		notify(r, ports.NoticeError, "Unable to read the submitted message.")
		redirect(w, r, "/chat")
		return
	}
	text := r.PostFormValue("text")

	_, err := c.Chat.Ask(backendCtx(r), text)
	if sessionLost(w, r, c) {
		return
	}
	if err != nil {
		if apperrors.IsValidation(err) {
			notify(r, ports.NoticeInfo, "Type a question first.")
		} else {
			notify(r, ports.NoticeError, service.UserMessage(err))
		}
	}

	if !IsHTMX(r) {
		redirect(w, r, "/chat")
		return
	}
	var added []model.ChatMessage
	if err == nil {
		// The question and its answer (or error reply) were appended.
		msgs := c.Chat.Transcript()
		added = msgs[max(0, len(msgs)-2):]
	}
	data := map[string]any{"Messages": added, "Notices": c.Inbox.Drain()}
	if err := h.T.RenderNamed(w, "chat-messages", data); err != nil {
		h.renderTemplateFailure(w, r, err)
	}
}

// ChatReset starts a new conversation.
func (h *UIHandlers) ChatReset(w http.ResponseWriter, r *http.Request) {
	c := h.clientOr500(w, r)
	if c == nil {
		return
	}
	c.Chat.Reset()
	notify(r, ports.NoticeInfo, "Started a new conversation.")
	redirect(w, r, "/chat")
}
