package telegram

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// BotConfig pairs one bot token with the chats it delivers to.
type BotConfig struct {
	Token   string
	ChatIDs []string
}

// DiscoverBots loads bot configurations from the environment. Numbered
// pairs (TELEGRAM_BOT_TOKEN_1 / TELEGRAM_CHAT_IDS_1, _2, ...) take
// precedence; otherwise the simple token/chat-id pair from the main
// config is used, with comma-separated chat IDs supported in both forms.
func DiscoverBots(simpleToken, simpleChatIDs string) []BotConfig {
	if bots := discoverNumberedBots(); len(bots) > 0 {
		return bots
	}

	chatIDs := splitChatIDs(simpleChatIDs)
	if simpleToken == "" || len(chatIDs) == 0 {
		return nil
	}
	return []BotConfig{{Token: simpleToken, ChatIDs: chatIDs}}
}

// discoverNumberedBots scans TELEGRAM_BOT_TOKEN_n from 1 upward and
// stops at the first missing token. A token without chat IDs is skipped
// rather than terminating the scan.
func discoverNumberedBots() []BotConfig {
	var bots []BotConfig
	for n := 1; ; n++ {
		token := os.Getenv(fmt.Sprintf("TELEGRAM_BOT_TOKEN_%d", n))
		if token == "" {
			break
		}

		chatIDs := splitChatIDs(os.Getenv(fmt.Sprintf("TELEGRAM_CHAT_IDS_%d", n)))
		if len(chatIDs) == 0 {
			slog.Warn("telegram bot token without chat ids, skipping",
				slog.Int("bot", n))
			continue
		}
		bots = append(bots, BotConfig{Token: token, ChatIDs: chatIDs})
	}
	return bots
}

func splitChatIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
