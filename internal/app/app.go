// Package app wires the server: stores, domain services, REST resources, the
// registry and the echo instance that hosts them.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/restws/internal/config"
	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/concept"
	"github.com/ehr/restws/internal/domain/encounter"
	"github.com/ehr/restws/internal/domain/person"
	"github.com/ehr/restws/internal/domain/user"
	"github.com/ehr/restws/internal/fixtures"
	"github.com/ehr/restws/internal/platform/auth"
	"github.com/ehr/restws/internal/platform/db"
	"github.com/ehr/restws/internal/platform/metrics"
	"github.com/ehr/restws/internal/platform/middleware"
	"github.com/ehr/restws/internal/platform/rest"
)

// App is a fully wired server.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Echo       *echo.Echo
	Registry   *rest.Registry
	Properties *config.Properties
	Metrics    *metrics.Metrics
	Services   fixtures.Services

	pool *pgxpool.Pool
}

// NewLogger returns the JSON logger, or a console logger in development.
func NewLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// PoolConfig derives the database pool settings from cfg.
func PoolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		AppName:  "restws-server",
	}
}

// New builds the server described by cfg. The caller owns the returned App
// and must Close it.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	props, err := config.NewProperties(cfg.PropertiesFile, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Registry:   rest.NewRegistry(),
		Properties: props,
		Metrics:    metrics.New(),
	}

	var st stores
	if cfg.UsesPostgres() {
		a.pool, err = db.NewPool(ctx, PoolConfig(cfg))
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
		st = pgStores(a.pool)
	} else {
		st = memoryStores()
	}

	a.Services = buildServices(st)
	if err := registerResources(a.Registry, a.Services); err != nil {
		a.Close()
		return nil, err
	}

	a.Echo = a.newEcho()

	props.Watch(func() {
		a.Metrics.RecordPropertyReload("ok")
	})

	if cfg.LoadFixtures {
		if _, err := a.LoadFixtures(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// LoadFixtures seeds the stores with the embedded dataset.
func (a *App) LoadFixtures(ctx context.Context) (int, error) {
	ds, err := fixtures.Parse(fixtures.Seed)
	if err != nil {
		return 0, err
	}
	ctx = domain.WithUser(ctx, a.Config.DefaultUser)
	return fixtures.Load(ctx, a.Services, ds, a.Logger)
}

// Close releases the database pool.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func (a *App) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.Logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(a.Config.BodyLimit))
	e.Use(middleware.RequestTimeout(a.Config.RequestTimeout))
	e.Use(auth.PrincipalMiddleware(a.Config.DefaultUser, auth.Skipper))

	e.GET("/health", db.HealthHandler(a.pool))
	e.GET("/metrics", a.Metrics.EchoHandler())

	dispatcher := rest.NewDispatcher(a.Registry, a.Properties, a.Config.MaxResultsDefault, a.Metrics)
	dispatcher.RegisterRoutes(e.Group(rest.URLPrefix + "/" + rest.APIVersion))
	return e
}

type stores struct {
	persons      person.PersonRepository
	patients     person.PatientRepository
	concepts     concept.ConceptRepository
	descriptions concept.DescriptionRepository
	users        user.UserRepository
	roles        user.RoleRepository
	encounters   encounter.Repos
	tx           domain.Transactor
}

func memoryStores() stores {
	persons := person.NewMemoryPersonRepo()
	return stores{
		persons:      persons,
		patients:     person.NewMemoryPatientRepo(persons),
		concepts:     concept.NewMemoryConceptRepo(),
		descriptions: concept.NewMemoryDescriptionRepo(),
		users:        user.NewMemoryUserRepo(persons),
		roles:        user.NewMemoryRoleRepo(),
		encounters: encounter.Repos{
			Locations:  encounter.NewMemoryLocationRepo(),
			Types:      encounter.NewMemoryEncounterTypeRepo(),
			Encounters: encounter.NewMemoryEncounterRepo(),
			Obs:        encounter.NewMemoryObsRepo(),
		},
		tx: domain.NoTx{},
	}
}

func pgStores(pool *pgxpool.Pool) stores {
	return stores{
		persons:      person.NewPersonRepo(pool),
		patients:     person.NewPatientRepo(pool),
		concepts:     concept.NewConceptRepo(pool),
		descriptions: concept.NewDescriptionRepo(pool),
		users:        user.NewUserRepo(pool),
		roles:        user.NewRoleRepo(pool),
		encounters: encounter.Repos{
			Locations:  encounter.NewLocationRepo(pool),
			Types:      encounter.NewEncounterTypeRepo(pool),
			Encounters: encounter.NewEncounterRepo(pool),
			Obs:        encounter.NewObsRepo(pool),
		},
		tx: db.Transactor{Pool: pool},
	}
}

func buildServices(st stores) fixtures.Services {
	people := person.NewService(st.persons, st.patients)
	concepts := concept.NewService(st.concepts, st.descriptions, st.tx)
	users := user.NewService(st.users, st.roles, people)
	encounters := encounter.NewService(st.encounters, people, concepts, st.tx)

	people.AddPersonDependency(domain.Dependency{Kind: "users", Count: users.CountByPerson})
	people.AddPersonDependency(domain.Dependency{Kind: "encounters or obs", Count: encounters.CountByPerson})
	people.AddPatientDependency(domain.Dependency{Kind: "encounters", Count: encounters.CountByPatient})
	concepts.AddDependency(domain.Dependency{Kind: "obs", Count: encounters.CountByConcept})

	return fixtures.Services{People: people, Concepts: concepts, Encounters: encounters, Users: users}
}

// NewRegistry returns a frozen registry over empty in-memory stores, for
// tooling that only inspects resource descriptions.
func NewRegistry() (*rest.Registry, error) {
	reg := rest.NewRegistry()
	if err := registerResources(reg, buildServices(memoryStores())); err != nil {
		return nil, err
	}
	return reg, nil
}

// registerResources registers every resource, checks its descriptions and
// freezes the registry.
func registerResources(reg *rest.Registry, svc fixtures.Services) error {
	entries := []struct {
		res   rest.Resource
		order int
	}{
		{rest.NewCrudResource[*user.UserAndPassword](user.NewUserResource(svc.Users, svc.People), reg), 0},
		{rest.NewCrudResource[*user.Role](user.NewRoleResource(svc.Users), reg), 0},
		{rest.NewCrudResource[*person.Person](person.NewPersonResource(svc.People), reg), 0},
		{rest.NewCrudResource[*person.Patient](person.NewPatientResource(svc.People), reg), 0},
		{rest.NewCrudResource[*encounter.Location](encounter.NewLocationResource(svc.Encounters), reg), 0},
		{rest.NewCrudResource[*encounter.EncounterType](encounter.NewEncounterTypeResource(svc.Encounters), reg), 0},
		{rest.NewCrudResource[*encounter.Encounter](encounter.NewEncounterResource(svc.Encounters, svc.People), reg), 0},
		{rest.NewCrudResource[*encounter.Obs](encounter.NewObsResource(svc.Encounters, svc.People, svc.Concepts), reg), 0},
		{rest.NewCrudResource[*concept.Concept](concept.NewConceptResource(svc.Concepts), reg), 0},
		{rest.NewCrudResource[*concept.Description](concept.NewDescriptionResource(svc.Concepts), reg), 0},
	}
	for _, en := range entries {
		if err := rest.CheckDescriptions(en.res); err != nil {
			return err
		}
		if err := reg.Register(en.res, en.order); err != nil {
			return err
		}
	}
	return reg.Freeze()
}
