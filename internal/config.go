package internal

import (
	"chatty/domain"
	"chatty/infrastructure/realtime"
	"chatty/moderation"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	APIURL          string        `env:"CHATTY_API_URL,default=http://localhost:5001/api"`
	SocketURL       string        `env:"CHATTY_SOCKET_URL"`
	PollingFallback bool          `env:"CHATTY_POLLING_FALLBACK,default=true"`
	RequestTimeout  time.Duration `env:"CHATTY_REQUEST_TIMEOUT,default=10s"`
	PreferencesPath string        `env:"CHATTY_PREFERENCES_PATH,default=.chatty"`
	DefaultTheme    string        `env:"CHATTY_DEFAULT_THEME,default=retro"`
	Colours         bool          `env:"CHATTY_COLOURS,default=true"`
	MutedWords      string        `env:"CHATTY_MUTED_WORDS"`
	MuteCharacter   string        `env:"CHATTY_MUTE_CHARACTER,default=*"`
	LogLevel        string        `env:"LOG_LEVEL,default=WARN"`
}

// LiveURL is the socket base URL: CHATTY_SOCKET_URL when set, otherwise
// the API URL without its path.
func (c Config) LiveURL() (string, error) {
	if c.SocketURL != "" {
		return c.SocketURL, nil
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return "", fmt.Errorf("invalid CHATTY_API_URL %q: %w", c.APIURL, err)
	}
	u.Path, u.RawQuery, u.Fragment = "", "", ""
	return strings.TrimRight(u.String(), "/"), nil
}

// Transports lists the live channel transports to try, in order.
func (c Config) Transports() []realtime.Transport {
	if c.PollingFallback {
		return []realtime.Transport{realtime.TransportWebsocket, realtime.TransportPolling}
	}
	return []realtime.Transport{realtime.TransportWebsocket}
}

func (c Config) Theme() domain.Theme {
	return domain.Theme(c.DefaultTheme)
}

// MuteFilter builds the filter for the comma separated CHATTY_MUTED_WORDS.
func (c Config) MuteFilter() (*moderation.MuteFilter, error) {
	mask, size := utf8.DecodeRuneInString(c.MuteCharacter)
	if mask == utf8.RuneError || size != len(c.MuteCharacter) {
		return nil, fmt.Errorf("invalid CHATTY_MUTE_CHARACTER %q: want a single character", c.MuteCharacter)
	}
	words := lo.Compact(lo.Map(strings.Split(c.MutedWords, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	}))
	return moderation.NewMuteFilter(words, mask)
}
