package domain

import (
	"context"
	"fmt"
	"strings"
)

// Dependency counts the records of one kind that reference an entity. They
// are attached to a service at wiring time so packages lower in the import
// graph can learn about the packages that reference them.
type Dependency struct {
	Kind  string
	Count func(ctx context.Context, uuid string) (int, error)
}

// CheckDependents returns ErrHasDependents, listing every blocking kind, when
// any dependency still references id.
func CheckDependents(ctx context.Context, what, id string, deps []Dependency) error {
	var blocking []string
	for _, d := range deps {
		n, err := d.Count(ctx, id)
		if err != nil {
			return fmt.Errorf("count %s referencing %s %s: %w", d.Kind, what, id, err)
		}
		if n > 0 {
			blocking = append(blocking, fmt.Sprintf("%d %s", n, d.Kind))
		}
	}
	if len(blocking) > 0 {
		return Dependents("%s %s is referenced by %s", what, id, strings.Join(blocking, ", "))
	}
	return nil
}
