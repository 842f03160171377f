// Package codec reads and writes school documents: professors, courses and
// students with their relations expressed by name.
package codec

import (
	"errors"
	"fmt"
	"io"

	"registrar/internal/domain"
)

// Importer interface for importing school data from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.School, error)
	Format() string
}

// Exporter interface for exporting school data to various formats
type Exporter interface {
	Export(school *domain.School, w io.Writer) error
	Format() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec registered for format
func ForFormat(format string) (Codec, error) {
	switch format {
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	}
	return nil, fmt.Errorf("unsupported format: %q", format)
}

// document is the serialized form of a school. Relations refer to names,
// which must be unique per entity type within a document.
type document struct {
	Professors []professorDoc `yaml:"professors" json:"professors"`
	Courses    []courseDoc    `yaml:"courses" json:"courses"`
	Students   []studentDoc   `yaml:"students" json:"students"`
}

type professorDoc struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

type courseDoc struct {
	Name      string  `yaml:"name" json:"name"`
	Credits   float64 `yaml:"credits" json:"credits"`
	Professor string  `yaml:"professor" json:"professor"`
}

type studentDoc struct {
	Name    string   `yaml:"name" json:"name"`
	Email   string   `yaml:"email" json:"email"`
	Courses []string `yaml:"courses,omitempty" json:"courses,omitempty"`
}

func toDocument(school *domain.School) document {
	doc := document{
		Professors: make([]professorDoc, 0, len(school.Professors)),
		Courses:    make([]courseDoc, 0, len(school.Courses)),
		Students:   make([]studentDoc, 0, len(school.Students)),
	}
	for _, p := range school.Professors {
		doc.Professors = append(doc.Professors, professorDoc{Name: p.Name, Email: p.Email})
	}
	for _, c := range school.Courses {
		cd := courseDoc{Name: c.Name, Credits: c.Credits}
		if p := c.Professor(); p != nil {
			cd.Professor = p.Name
		}
		doc.Courses = append(doc.Courses, cd)
	}
	for _, st := range school.Students {
		sd := studentDoc{Name: st.Name, Email: st.Email}
		for _, c := range st.Courses() {
			sd.Courses = append(sd.Courses, c.Name)
		}
		doc.Students = append(doc.Students, sd)
	}
	return doc
}

// toSchool resolves name references into a detached object graph
func (doc document) toSchool() (*domain.School, error) {
	school := domain.NewSchool()
	var errs []error

	professors := make(map[string]*domain.Professor, len(doc.Professors))
	for _, pd := range doc.Professors {
		if _, dup := professors[pd.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate professor %q", pd.Name))
			continue
		}
		p := domain.NewProfessor(pd.Name, pd.Email)
		professors[pd.Name] = p
		school.Professors = append(school.Professors, p)
	}

	courses := make(map[string]*domain.Course, len(doc.Courses))
	for _, cd := range doc.Courses {
		if _, dup := courses[cd.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate course %q", cd.Name))
			continue
		}
		p, ok := professors[cd.Professor]
		if !ok {
			errs = append(errs, fmt.Errorf("course %q: unknown professor %q", cd.Name, cd.Professor))
			continue
		}
		c, err := domain.NewCourse(cd.Name, cd.Credits, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("course %q: %w", cd.Name, err))
			continue
		}
		courses[cd.Name] = c
		school.Courses = append(school.Courses, c)
	}

	students := make(map[string]bool, len(doc.Students))
	for _, sd := range doc.Students {
		if students[sd.Name] {
			errs = append(errs, fmt.Errorf("duplicate student %q", sd.Name))
			continue
		}
		students[sd.Name] = true
		st := domain.NewStudent(sd.Name, sd.Email)
		for _, name := range sd.Courses {
			c, ok := courses[name]
			if !ok {
				errs = append(errs, fmt.Errorf("student %q: unknown course %q", sd.Name, name))
				continue
			}
			st.Enroll(c)
		}
		school.Students = append(school.Students, st)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid school document: %w", err)
	}
	return school, nil
}
