package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
	"github.com/redis/go-redis/v9"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/cache"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/env"
)

// Supported login providers
const (
	ProviderGoogle  = "google"
	ProviderDiscord = "discord"
)

// Setup registers the configured providers and stores OAuth state in Redis.
func Setup() []string {
	names := RegisterProviders(BaseURL())
	gothfiber.SessionStore = NewStateStore(cache.GetClient())
	return names
}

// BaseURL is the public origin used for callback URLs.
func BaseURL() string {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return base
}

// RegisterProviders registers every provider that has client credentials and
// returns their names. It is safe to call multiple times.
func RegisterProviders(base string) []string {
	var providers []goth.Provider
	var names []string

	if key := env.GetEnv("GOOGLE_KEY", ""); key != "" {
		providers = append(providers, google.New(
			key,
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		))
		names = append(names, ProviderGoogle)
	}
	if key := env.GetEnv("DISCORD_KEY", ""); key != "" {
		providers = append(providers, discord.New(
			key,
			env.GetEnv("DISCORD_SECRET", ""),
			base+"/auth/discord/callback",
			discord.ScopeIdentify, discord.ScopeEmail,
		))
		names = append(names, ProviderDiscord)
	}

	goth.ClearProviders()
	goth.UseProviders(providers...)
	return names
}

// IsSupported reports whether name is a provider this site offers.
func IsSupported(name string) bool {
	return name == ProviderGoogle || name == ProviderDiscord
}

// NewStateStore keeps OAuth state on the cache connection in a separate DB (2).
func NewStateStore(client *redis.Client) *session.Store {
	host, port := "127.0.0.1", 6379
	var username, password string
	if client != nil {
		opts := client.Options()
		username, password = opts.Username, opts.Password
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else if opts.Addr != "" {
			host = opts.Addr
		}
	}

	return session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: username,
			Password: password,
			Database: 2,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     72 * time.Hour,
	})
}
