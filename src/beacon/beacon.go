package beacon

import (
	"os"

	"github.com/openincident/beacon/src/config"
	"github.com/openincident/beacon/src/feed"
	"github.com/openincident/beacon/src/peers"
	"github.com/openincident/beacon/src/pull"
	"github.com/openincident/beacon/src/schema"
	"github.com/openincident/beacon/src/service"
	"github.com/openincident/beacon/src/store"
	"github.com/openincident/beacon/src/validation"
	"github.com/sirupsen/logrus"
)

// Beacon is the top-level struct tying together the store, the schema
// subsystem, the validator, the pull engine, the feed producer, and the
// HTTP service.
type Beacon struct {
	Config    *config.Config
	Store     store.Store
	Generator *schema.Generator
	Validator *validation.Validator
	Producer  *feed.Producer
	Puller    *pull.Puller
	Service   *service.Service

	logger *logrus.Entry
}

// NewBeacon ...
func NewBeacon(conf *config.Config) *Beacon {
	return &Beacon{
		Config: conf,
		logger: conf.Logger(),
	}
}

func (b *Beacon) initStore() error {
	if !b.Config.Store {
		b.Store = store.NewInmemStore()

		b.logger.Debug("created new in-mem store")
	} else {
		var err error

		b.logger.WithField("path", b.Config.DatabaseDir).Debug("Attempting to load or create database")

		b.Store, err = store.NewBadgerStore(b.Config.DatabaseDir)

		if err != nil {
			return err
		}

		b.logger.Debug("opened badger store")
	}

	return nil
}

// initPeers seeds the registry from the peers.json bootstrap file. Peers
// already in the store keep their registered settings.
func (b *Beacon) initPeers() error {
	peerStore := peers.NewJSONPeerSet(b.Config.DataDir)

	bootstrap, err := peerStore.Peers()
	if err != nil {
		return err
	}

	for _, p := range bootstrap {
		if err := p.Check(); err != nil {
			b.logger.WithError(err).Warn("Skipping bootstrap peer")
			continue
		}
		if err := b.Store.SetPeer(p); err != nil {
			return err
		}
	}

	registered, err := b.Store.Peers()
	if err != nil {
		return err
	}

	b.logger.WithField("peers", len(registered)).Debug("PEERS")

	return nil
}

// initSchemas seeds the raw definitions of the two namespaces and builds
// the Generator. The core definition is fixed; the local one is read from
// schema.json in the datadir when present, and falls back to a starter
// definition.
func (b *Beacon) initSchemas() error {
	b.Generator = schema.NewGenerator(
		b.Store,
		b.Config.CoreDomain,
		b.Config.LocalDomain,
		b.Config.Namespace,
	)

	if !b.Generator.HasCoreSchema() {
		if err := b.Store.SetRawSchema(schema.CoreDefinition(b.Config.CoreDomain)); err != nil {
			return err
		}
		b.logger.Debug("seeded core schema definition")
	}

	if !b.Generator.HasLocalSchema() {
		local := schema.DefaultLocalDefinition(b.Config.LocalDomain, b.Config.Namespace)

		if _, err := os.Stat(b.Config.SchemaFile()); err == nil {
			loaded, err := schema.LoadDefinition(b.Config.SchemaFile())
			if err != nil {
				return err
			}
			if loaded.Namespace != b.Config.Namespace {
				b.logger.WithFields(logrus.Fields{
					"file":       loaded.Namespace,
					"configured": b.Config.Namespace,
				}).Warn("schema.json namespace differs from configuration, using file")
			}
			local = loaded
		}

		if err := b.Store.SetRawSchema(local); err != nil {
			return err
		}
		b.logger.WithField("namespace", local.Namespace).Debug("seeded local schema definition")
	}

	return nil
}

// initValidator compiles the generated schemas into checkers: the core
// context validates against the core schema alone, the local context
// against the core+local composite.
func (b *Beacon) initValidator() error {
	b.Validator = validation.NewValidator(b.logger)

	coreSchema, err := b.Generator.CoreSchema()
	if err != nil {
		return err
	}
	if err := b.Validator.RegisterSchema(b.Generator.CoreContextURL(), coreSchema); err != nil {
		return err
	}

	merged, err := b.Generator.MergedSchema()
	if err != nil {
		return err
	}
	return b.Validator.RegisterSchema(b.Generator.LocalContextURL(), merged)
}

func (b *Beacon) initPull() error {
	client := pull.NewClient(b.Config.Timeout, b.logger)
	b.Puller = pull.NewPuller(b.Store, client, b.Validator, b.logger)
	return nil
}

func (b *Beacon) initService() error {
	b.Producer = feed.NewProducer(
		b.Store,
		b.Config.LocalDomain,
		b.Config.Moniker,
		b.Config.PageSize,
	)

	b.Service = service.NewService(
		b.Config.ServiceAddr,
		b.Store,
		b.Producer,
		b.Generator,
		b.Validator,
		b.Puller,
		b.Config.LocalDomain,
		b.logger,
	)

	return nil
}

// Init initialises the node's components in dependency order.
func (b *Beacon) Init() error {
	if err := b.initStore(); err != nil {
		return err
	}

	if err := b.initPeers(); err != nil {
		return err
	}

	if err := b.initSchemas(); err != nil {
		return err
	}

	if err := b.initValidator(); err != nil {
		return err
	}

	if err := b.initPull(); err != nil {
		return err
	}

	if err := b.initService(); err != nil {
		return err
	}

	return nil
}

// Run serves the HTTP API. This is a blocking call.
func (b *Beacon) Run() {
	b.Service.Serve()
}

// Shutdown closes the store.
func (b *Beacon) Shutdown() {
	b.logger.Debug("Shutdown")

	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			b.logger.WithError(err).Error("Closing store")
		}
	}
}
