// Package fixtures seeds a store with the reference dataset: the location,
// encounter types, people, concepts and administrator the REST examples
// refer to.
package fixtures

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/concept"
	"github.com/ehr/restws/internal/domain/encounter"
	"github.com/ehr/restws/internal/domain/person"
	"github.com/ehr/restws/internal/domain/user"
)

//go:embed seed.yaml
var Seed []byte

type Dataset struct {
	Persons        []Person   `yaml:"persons"`
	Patients       []Patient  `yaml:"patients"`
	Locations      []Metadata `yaml:"locations"`
	EncounterTypes []Metadata `yaml:"encounterTypes"`
	Concepts       []Concept  `yaml:"concepts"`
	Roles          []Role     `yaml:"roles"`
	Users          []User     `yaml:"users"`
}

type Person struct {
	UUID       string `yaml:"uuid"`
	GivenName  string `yaml:"givenName"`
	FamilyName string `yaml:"familyName"`
	Gender     string `yaml:"gender"`
	Birthdate  string `yaml:"birthdate"`
}

type Patient struct {
	UUID       string `yaml:"uuid"`
	Identifier string `yaml:"identifier"`
	Person     string `yaml:"person"`
}

type Metadata struct {
	UUID        string `yaml:"uuid"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Concept struct {
	UUID         string        `yaml:"uuid"`
	Name         string        `yaml:"name"`
	Datatype     string        `yaml:"datatype"`
	ConceptClass string        `yaml:"conceptClass"`
	Descriptions []Description `yaml:"descriptions"`
}

type Description struct {
	UUID        string `yaml:"uuid"`
	Description string `yaml:"description"`
	Locale      string `yaml:"locale"`
}

type Role struct {
	UUID        string `yaml:"uuid"`
	Role        string `yaml:"role"`
	Description string `yaml:"description"`
}

type User struct {
	UUID           string            `yaml:"uuid"`
	Username       string            `yaml:"username"`
	SystemID       string            `yaml:"systemId"`
	Person         string            `yaml:"person"`
	Password       string            `yaml:"password"`
	Roles          []string          `yaml:"roles"`
	UserProperties map[string]string `yaml:"userProperties"`
}

// Parse decodes a dataset document.
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &ds, nil
}

// Services receives the dataset.
type Services struct {
	People     *person.Service
	Concepts   *concept.Service
	Encounters *encounter.Service
	Users      *user.Service
}

// Load saves every record of ds that is not stored yet and returns how many
// were created. Existing uuids are left untouched, so loading twice is safe.
func Load(ctx context.Context, svc Services, ds *Dataset, log zerolog.Logger) (int, error) {
	l := &loader{ctx: ctx, svc: svc}
	steps := []struct {
		what string
		fn   func(*Dataset) error
	}{
		{"persons", l.persons},
		{"patients", l.patients},
		{"locations", l.locations},
		{"encounter types", l.encounterTypes},
		{"concepts", l.concepts},
		{"roles", l.roles},
		{"users", l.users},
	}
	for _, s := range steps {
		if err := s.fn(ds); err != nil {
			return l.created, fmt.Errorf("load %s: %w", s.what, err)
		}
	}
	log.Info().Int("created", l.created).Msg("fixtures loaded")
	return l.created, nil
}

type loader struct {
	ctx     context.Context
	svc     Services
	created int
}

// missing reports whether get failed with ErrNotFound.
func missing[T any](get func(context.Context, string) (T, error), ctx context.Context, id string) (bool, error) {
	_, err := get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	return false, err
}

func (l *loader) persons(ds *Dataset) error {
	for _, p := range ds.Persons {
		ok, err := missing(l.svc.People.GetPerson, l.ctx, p.UUID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := &person.Person{UUID: p.UUID, GivenName: p.GivenName, FamilyName: p.FamilyName, Gender: p.Gender}
		if p.Birthdate != "" {
			b, err := time.Parse(time.DateOnly, p.Birthdate)
			if err != nil {
				return fmt.Errorf("person %s birthdate: %w", p.UUID, err)
			}
			rec.Birthdate = &b
		}
		if _, err := l.svc.People.SavePerson(l.ctx, rec); err != nil {
			return err
		}
		l.created++
	}
	return nil
}

func (l *loader) patients(ds *Dataset) error {
	for _, p := range ds.Patients {
		ok, err := missing(l.svc.People.GetPatient, l.ctx, p.UUID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := &person.Patient{UUID: p.UUID, Identifier: p.Identifier, Person: &person.Person{UUID: p.Person}}
		if _, err := l.svc.People.SavePatient(l.ctx, rec); err != nil {
			return err
		}
		l.created++
	}
	return nil
}

func (l *loader) locations(ds *Dataset) error {
	for _, m := range ds.Locations {
		ok, err := missing(l.svc.Encounters.GetLocation, l.ctx, m.UUID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := &encounter.Location{UUID: m.UUID, Name: m.Name, Description: m.Description}
		if _, err := l.svc.Encounters.SaveLocation(l.ctx, rec); err != nil {
			return err
		}
		l.created++
	}
	return nil
}

func (l *loader) encounterTypes(ds *Dataset) error {
	for _, m := range ds.EncounterTypes {
		ok, err := missing(l.svc.Encounters.GetEncounterType, l.ctx, m.UUID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := &encounter.EncounterType{UUID: m.UUID, Name: m.Name, Description: m.Description}
		if _, err := l.svc.Encounters.SaveEncounterType(l.ctx, rec); err != nil {
			return err
		}
		l.created++
	}
	return nil
}

func (l *loader) concepts(ds *Dataset) error {
	for _, c := range ds.Concepts {
		ok, err := missing(l.svc.Concepts.GetConcept, l.ctx, c.UUID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := &concept.Concept{UUID: c.UUID, Name: c.Name, Datatype: c.Datatype, ConceptClass: c.ConceptClass}
		saved, err := l.svc.Concepts.SaveConcept(l.ctx, rec)
		if err != nil {
			return err
		}
		l.created++
		for _, d := range c.Descriptions {
			desc := &concept.Description{UUID: d.UUID, Description: d.Description, Locale: d.Locale, Concept: saved}
			if _, err := l.svc.Concepts.SaveDescription(l.ctx, desc); err != nil {
				return err
			}
			l.created++
		}
	}
	return nil
}

func (l *loader) roles(ds *Dataset) error {
	for _, r := range ds.Roles {
		ok, err := missing(l.svc.Users.GetRole, l.ctx, r.UUID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := l.svc.Users.SaveRole(l.ctx, &user.Role{UUID: r.UUID, Role: r.Role, Description: r.Description}); err != nil {
			return err
		}
		l.created++
	}
	return nil
}

func (l *loader) users(ds *Dataset) error {
	for _, u := range ds.Users {
		ok, err := missing(l.svc.Users.GetUser, l.ctx, u.UUID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := &user.User{
			UUID:           u.UUID,
			Username:       u.Username,
			SystemID:       u.SystemID,
			Person:         &person.Person{UUID: u.Person},
			UserProperties: u.UserProperties,
		}
		for _, id := range u.Roles {
			rec.Roles = append(rec.Roles, &user.Role{UUID: id})
		}
		if _, err := l.svc.Users.SaveUser(l.ctx, rec, u.Password); err != nil {
			return err
		}
		l.created++
	}
	return nil
}
