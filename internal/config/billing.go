package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig carries invoice rendering and document knobs. It is loaded
// from billing.yml when present and hot-reloaded on change; otherwise the
// defaults apply.
type BillingConfig struct {
	IssuerName     string `mapstructure:"issuer_name"`
	FooterNote     string `mapstructure:"footer_note"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	PaymentNote    string `mapstructure:"payment_note"`
	DocumentLocale string `mapstructure:"document_locale"`
	DueInDays      int    `mapstructure:"due_in_days"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		IssuerName:     "Mietwerk Hausverwaltung",
		FooterNote:     "Generated by Mietwerk. Objections within six weeks of receipt.",
		CurrencySymbol: "EUR",
		PaymentNote:    "Please settle the balance with your next rent payment.",
		DocumentLocale: "de-DE",
		DueInDays:      30,
	}
}

// BillingConfigHolder serves the current BillingConfig to readers while a
// watcher swaps it atomically on file change.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/mietwerk")
	v.AddConfigPath(".")

	holder := &BillingConfigHolder{}
	holder.current.Store(DefaultBillingConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return holder, nil
		}
		return nil, err
	}

	if cfg, err := decodeBillingConfig(v); err == nil {
		holder.current.Store(cfg)
	} else {
		log.Printf("billing config invalid, using defaults: %v", err)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := decodeBillingConfig(v)
		if err != nil {
			log.Printf("billing config reload failed, keeping previous: %v", err)
			return
		}
		holder.current.Store(cfg)
	})
	v.WatchConfig()

	return holder, nil
}

// NewStaticBillingConfigHolder pins the holder to cfg with no file
// watching. Tests and one-off tooling use it.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

// Current returns the active billing configuration.
func (h *BillingConfigHolder) Current() BillingConfig {
	cfg, _ := h.current.Load().(BillingConfig)
	return cfg
}

func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	cfg := DefaultBillingConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return BillingConfig{}, err
	}
	if strings.TrimSpace(cfg.IssuerName) == "" {
		cfg.IssuerName = DefaultBillingConfig().IssuerName
	}
	if cfg.DueInDays <= 0 {
		cfg.DueInDays = DefaultBillingConfig().DueInDays
	}
	return cfg, nil
}
