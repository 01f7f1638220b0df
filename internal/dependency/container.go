// Package dependency wires core lauruschat services using go.uber.org/dig.
package dependency

import (
	"time"

	"go.uber.org/dig"

	"github.com/lauruschat/lauruschat/internal/assistant"
	"github.com/lauruschat/lauruschat/internal/channels"
	"github.com/lauruschat/lauruschat/internal/config"
	"github.com/lauruschat/lauruschat/internal/providers"
	"github.com/lauruschat/lauruschat/internal/retention"
	"github.com/lauruschat/lauruschat/internal/search"
	"github.com/lauruschat/lauruschat/internal/server"
	"github.com/lauruschat/lauruschat/internal/store"
	"github.com/lauruschat/lauruschat/internal/tools"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	client    *providers.OpenAIClient
	convStore store.ConversationStore
	registry  *tools.Registry
	responder *assistant.Responder
	srv       *server.Server
	sweeper   *retention.Service
}

func (c *Container) OpenAI() *providers.OpenAIClient     { return c.client }
func (c *Container) Store() store.ConversationStore      { return c.convStore }
func (c *Container) ToolRegistry() *tools.Registry       { return c.registry }
func (c *Container) Responder() *assistant.Responder     { return c.responder }
func (c *Container) Server() *server.Server              { return c.srv }
func (c *Container) RetentionService() *retention.Service { return c.sweeper }

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newOpenAIClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newStore); err != nil {
		return nil, err
	}
	if err := d.Provide(newSearchPipeline); err != nil {
		return nil, err
	}
	if err := d.Provide(newToolRegistry); err != nil {
		return nil, err
	}
	if err := d.Provide(newDispatcher); err != nil {
		return nil, err
	}
	if err := d.Provide(newRunDriver); err != nil {
		return nil, err
	}
	if err := d.Provide(newResponder); err != nil {
		return nil, err
	}
	if err := d.Provide(newWhatsAppSender); err != nil {
		return nil, err
	}
	if err := d.Provide(newServer); err != nil {
		return nil, err
	}
	if err := d.Provide(newRetentionService); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		client *providers.OpenAIClient,
		convStore store.ConversationStore,
		registry *tools.Registry,
		responder *assistant.Responder,
		srv *server.Server,
		sweeper *retention.Service,
	) {
		result = &Container{
			client:    client,
			convStore: convStore,
			registry:  registry,
			responder: responder,
			srv:       srv,
			sweeper:   sweeper,
		}
	})
	return result, err
}

func newOpenAIClient(cfg *config.Config) *providers.OpenAIClient {
	return providers.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.APIBase)
}

func newStore(cfg *config.Config) (store.ConversationStore, error) {
	return store.OpenSQLite(cfg.Storage.Path)
}

func newSearchPipeline(cfg *config.Config, client *providers.OpenAIClient) *search.Pipeline {
	return search.NewPipeline(
		cfg.Search.APIKey,
		cfg.Search.CSEID,
		cfg.Search.MaxResults,
		cfg.Search.MaxPageChars,
		cfg.OpenAI.SummaryModel,
		client,
	)
}

func newToolRegistry(pipeline *search.Pipeline) *tools.Registry {
	return tools.NewRegistry(
		tools.NewSearchTool(pipeline),
		tools.NewApplicationFormTool(),
	)
}

func newDispatcher(registry *tools.Registry) *tools.Dispatcher {
	return tools.NewDispatcher(registry)
}

func newRunDriver(client *providers.OpenAIClient, dispatcher *tools.Dispatcher, cfg *config.Config) *assistant.RunDriver {
	return assistant.NewRunDriver(client, dispatcher, cfg.OpenAI.AssistantID)
}

func newResponder(convStore store.ConversationStore, client *providers.OpenAIClient, driver *assistant.RunDriver) *assistant.Responder {
	return assistant.NewResponder(convStore, client, driver)
}

func newWhatsAppSender(cfg *config.Config) *channels.WhatsAppSender {
	return channels.NewWhatsAppSender(
		cfg.WhatsApp.AccessToken,
		cfg.WhatsApp.PhoneNumberID,
		cfg.WhatsApp.APIVersion,
	)
}

func newServer(responder *assistant.Responder, sender *channels.WhatsAppSender, cfg *config.Config) *server.Server {
	return server.New(responder, sender, cfg.WhatsApp.VerifyToken, cfg.Server.Port, cfg.WhatsApp.Enabled)
}

func newRetentionService(convStore store.ConversationStore, cfg *config.Config) *retention.Service {
	window := time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour
	return retention.NewService(convStore, window)
}
