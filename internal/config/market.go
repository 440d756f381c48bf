package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MarketConfig is the hot-reloadable part of the configuration. Webhook
// secrets live here so they can be rotated without a restart.
type MarketConfig struct {
	WebhookSecrets  []string `mapstructure:"webhookSecrets"`
	SiteURL         string   `mapstructure:"siteURL"`
	ListingPageSize int      `mapstructure:"listingPageSize"`
}

func DefaultMarketConfig(cfg Config) MarketConfig {
	return MarketConfig{
		WebhookSecrets:  cfg.Stripe.WebhookSecrets,
		SiteURL:         cfg.SiteURL,
		ListingPageSize: 24,
	}
}

type MarketConfigHolder struct {
	current atomic.Value // holds MarketConfig
}

func NewMarketConfigHolder(cfg Config, log *zap.Logger) (*MarketConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("market")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/flashmarket")
	v.AddConfigPath(".")

	return loadMarketConfig(v, cfg, log)
}

// StaticMarketConfig returns a holder that never reloads.
func StaticMarketConfig(mc MarketConfig) *MarketConfigHolder {
	holder := &MarketConfigHolder{}
	holder.current.Store(normalizeMarketConfig(mc))
	return holder
}

func loadMarketConfig(v *viper.Viper, cfg Config, log *zap.Logger) (*MarketConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("market.config")

	defaults := DefaultMarketConfig(cfg)
	v.SetDefault("market.webhookSecrets", defaults.WebhookSecrets)
	v.SetDefault("market.siteURL", defaults.SiteURL)
	v.SetDefault("market.listingPageSize", defaults.ListingPageSize)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	mc, err := unmarshalMarketConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &MarketConfigHolder{}
	holder.current.Store(mc)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalMarketConfig(v)
			if err != nil {
				log.Warn("reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("reloaded", zap.String("file", e.Name), zap.Int("webhook_secrets", len(updated.WebhookSecrets)))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func unmarshalMarketConfig(v *viper.Viper) (MarketConfig, error) {
	var mc MarketConfig
	if err := v.UnmarshalKey("market", &mc); err != nil {
		return MarketConfig{}, err
	}
	mc = normalizeMarketConfig(mc)
	if err := validateMarketConfig(mc); err != nil {
		return MarketConfig{}, err
	}
	return mc, nil
}

func normalizeMarketConfig(mc MarketConfig) MarketConfig {
	// a single env-style "a,b" entry is accepted as well as a yaml list
	secrets := make([]string, 0, len(mc.WebhookSecrets))
	for _, raw := range mc.WebhookSecrets {
		secrets = append(secrets, ParseList(raw)...)
	}
	mc.WebhookSecrets = secrets
	mc.SiteURL = strings.TrimRight(strings.TrimSpace(mc.SiteURL), "/")
	if mc.ListingPageSize <= 0 {
		mc.ListingPageSize = 24
	}
	return mc
}

func validateMarketConfig(mc MarketConfig) error {
	if mc.SiteURL != "" && !strings.HasPrefix(mc.SiteURL, "http://") && !strings.HasPrefix(mc.SiteURL, "https://") {
		return errors.New("market.siteURL must be an absolute http(s) URL")
	}
	if mc.ListingPageSize > 100 {
		return errors.New("market.listingPageSize cannot exceed 100")
	}
	return nil
}

func (h *MarketConfigHolder) Get() MarketConfig {
	return h.current.Load().(MarketConfig)
}
