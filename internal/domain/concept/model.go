package concept

import "github.com/ehr/restws/internal/domain"

// Datatypes and Classes are the accepted concept classifications.
var (
	Datatypes = []string{"N/A", "Numeric", "Coded", "Text", "Date", "Datetime", "Boolean"}
	Classes   = []string{"Diagnosis", "Finding", "Test", "Question", "Symptom", "Drug", "Misc"}
)

type Concept struct {
	UUID         string
	Name         string
	Datatype     string
	ConceptClass string
	Set          bool
	Version      string
	// Descriptions are owned by the concept and purged with it.
	Descriptions []*Description
	domain.Audit
	domain.RetireInfo
}

// Ref returns a stub carrying only the uuid.
func Ref(c *Concept) *Concept {
	if c == nil {
		return nil
	}
	return &Concept{UUID: c.UUID}
}

func (c *Concept) clone() *Concept {
	cp := *c
	cp.Descriptions = nil
	return &cp
}

// Description is a localized free-text description of a concept.
type Description struct {
	UUID        string
	Description string
	Locale      string
	Concept     *Concept
	domain.Audit
}

func (d *Description) clone() *Description {
	cp := *d
	cp.Concept = Ref(d.Concept)
	return &cp
}
