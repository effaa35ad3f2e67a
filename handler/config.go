package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/cardgate/infra/config"
	"github.com/mstgnz/cardgate/infra/logger"
	"github.com/mstgnz/cardgate/infra/middle"
	"github.com/mstgnz/cardgate/infra/response"
	"github.com/mstgnz/cardgate/provider"
)

// ProviderConfigurer applies gateway credentials at runtime.
type ProviderConfigurer interface {
	ConfigureProvider(name string, cfg map[string]string) error
	RequiredConfig(name, environment string) ([]provider.ConfigField, error)
	ProviderNames() []string
}

// ConfigStore persists gateway credentials.
type ConfigStore interface {
	Save(providerName, environment string, cfg map[string]string) error
}

// ConfigHandler handles configuration related HTTP requests
type ConfigHandler struct {
	paymentService ProviderConfigurer
	store          ConfigStore
}

// NewConfigHandler creates a new config handler. A nil store keeps the
// configuration in memory only.
func NewConfigHandler(paymentService ProviderConfigurer, store ConfigStore) *ConfigHandler {
	return &ConfigHandler{
		paymentService: paymentService,
		store:          store,
	}
}

// ConfigureResponse is returned after a provider has been (re)configured.
type ConfigureResponse struct {
	Provider            string   `json:"provider"`
	Environment         string   `json:"environment"`
	Persisted           bool     `json:"persisted"`
	ConfiguredProviders []string `json:"configuredProviders"`
}

// SetProviderConfig validates the submitted credentials, registers the provider
// with them and stores them so they survive a restart. Nothing is stored when
// validation fails.
func (h *ConfigHandler) SetProviderConfig(w http.ResponseWriter, r *http.Request) {
	providerName := strings.ToLower(chi.URLParam(r, "provider"))

	var cfg map[string]string
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if len(cfg) == 0 {
		response.Error(w, http.StatusBadRequest, "Configuration is required", nil)
		return
	}
	if cfg["environment"] == "" {
		cfg["environment"] = config.GetAppConfig().ProviderEnvironment()
	}

	if err := h.paymentService.ConfigureProvider(providerName, cfg); err != nil {
		response.Failure(w, err)
		return
	}

	persisted := false
	if h.store != nil {
		if err := h.store.Save(providerName, cfg["environment"], cfg); err != nil {
			logger.Error("Failed to persist provider configuration", err, logger.LogContext{
				Provider:  providerName,
				RequestID: middle.GetRequestID(r.Context()),
			})
			response.Error(w, http.StatusInternalServerError, "Failed to save provider configuration", nil)
			return
		}
		persisted = true
	}

	response.Success(w, http.StatusOK, "Configuration updated", ConfigureResponse{
		Provider:            providerName,
		Environment:         cfg["environment"],
		Persisted:           persisted,
		ConfiguredProviders: h.paymentService.ProviderNames(),
	})
}

// GetRequiredConfig describes the fields a provider expects. The environment
// query parameter defaults to the server's gateway environment.
func (h *ConfigHandler) GetRequiredConfig(w http.ResponseWriter, r *http.Request) {
	providerName := strings.ToLower(chi.URLParam(r, "provider"))

	environment := r.URL.Query().Get("environment")
	if environment == "" {
		environment = config.GetAppConfig().ProviderEnvironment()
	}

	fields, err := h.paymentService.RequiredConfig(providerName, environment)
	if err != nil {
		response.Failure(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Required configuration", map[string]any{
		"provider":    providerName,
		"environment": environment,
		"fields":      fields,
	})
}
