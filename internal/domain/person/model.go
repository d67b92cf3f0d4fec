package person

import (
	"strings"
	"time"

	"github.com/ehr/restws/internal/domain"
)

// Genders accepted on a person.
var Genders = []string{"M", "F", "U", "O"}

type Person struct {
	UUID               string
	GivenName          string
	MiddleName         string
	FamilyName         string
	Gender             string
	Birthdate          *time.Time
	BirthdateEstimated bool
	Dead               bool
	domain.Audit
	domain.VoidInfo
}

// FullName joins the non-empty name parts.
func (p *Person) FullName() string {
	var parts []string
	for _, s := range []string{p.GivenName, p.MiddleName, p.FamilyName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Age in whole years at now; nil without a birthdate.
func (p *Person) Age(now time.Time) *int {
	if p.Birthdate == nil {
		return nil
	}
	b := p.Birthdate.In(now.Location())
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}

// Ref returns a stub carrying only the uuid.
func Ref(p *Person) *Person {
	if p == nil {
		return nil
	}
	return &Person{UUID: p.UUID}
}

func (p *Person) clone() *Person {
	cp := *p
	if p.Birthdate != nil {
		b := *p.Birthdate
		cp.Birthdate = &b
	}
	return &cp
}

type Patient struct {
	UUID       string
	Identifier string
	Person     *Person
	domain.Audit
	domain.VoidInfo
}

// PatientRef returns a stub carrying only the uuid.
func PatientRef(p *Patient) *Patient {
	if p == nil {
		return nil
	}
	return &Patient{UUID: p.UUID}
}

func (p *Patient) clone() *Patient {
	cp := *p
	cp.Person = Ref(p.Person)
	return &cp
}
