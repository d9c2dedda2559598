package httpapi

import (
	"crypto/subtle"
	"net/http"

	"vistora/pkg/types"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// tgWebhook godoc
// @Summary      Telegram webhook
// @Description  Unsupported events answer 200 with ok=false, as bots expect.
// @Tags         telegram
// @Accept       json
// @Produce      json
// @Param        request  body      types.TgWebhookRequest  true  "event"
// @Success      200      {object}  types.TgWebhookResponse
// @Failure      401      {object}  types.ErrorResponse
// @Router       /api/v1/tg/webhook [post]
func (s *server) tgWebhook(w http.ResponseWriter, r *http.Request) {
	if s.Telegram == nil {
		unavailable(w, "telegram")
		return
	}
	if s.TelegramSecret != "" {
		got := r.Header.Get(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.TelegramSecret)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "invalid webhook secret")
			return
		}
	}
	var req types.TgWebhookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.Telegram.Handle(r.Context(), req))
}
