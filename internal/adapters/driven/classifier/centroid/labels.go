package centroid

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/concierge/internal/core/domain"
)

// DefaultTemperature sharpens the softmax over centroid distances.
const DefaultTemperature = 0.05

// Label is one category and the phrases that exemplify it.
type Label struct {
	Name     string   `toml:"name"`
	Examples []string `toml:"examples"`
}

// LabelSet is the contents of a labels file:
//
//	temperature = 0.05
//
//	[[label]]
//	name = "admissions"
//	examples = ["How do I apply?", "What are the entry requirements?"]
type LabelSet struct {
	Temperature float64 `toml:"temperature"`
	Labels      []Label `toml:"label"`
}

// LoadLabelSet reads and validates a TOML labels file.
func LoadLabelSet(path string) (LabelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LabelSet{}, fmt.Errorf("read labels file: %w", err)
	}
	return ParseLabelSet(data)
}

// ParseLabelSet decodes and validates TOML label definitions.
func ParseLabelSet(data []byte) (LabelSet, error) {
	var set LabelSet
	if err := toml.Unmarshal(data, &set); err != nil {
		return LabelSet{}, fmt.Errorf("parse labels: %w", err)
	}
	if err := set.Validate(); err != nil {
		return LabelSet{}, err
	}
	return set, nil
}

// Validate requires at least two labels, unique normalised names and at
// least one non-blank example per label.
func (s LabelSet) Validate() error {
	if len(s.Labels) < 2 {
		return fmt.Errorf("%w: need at least two labels, got %d", domain.ErrInvalidInput, len(s.Labels))
	}
	if s.Temperature < 0 {
		return fmt.Errorf("%w: temperature must not be negative", domain.ErrInvalidInput)
	}

	seen := make(map[string]bool, len(s.Labels))
	for _, l := range s.Labels {
		name := domain.NormaliseLabel(l.Name)
		if name == "" {
			return fmt.Errorf("%w: label with empty name", domain.ErrInvalidInput)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate label %q", domain.ErrInvalidInput, name)
		}
		seen[name] = true

		var usable int
		for _, ex := range l.Examples {
			if strings.TrimSpace(ex) != "" {
				usable++
			}
		}
		if usable == 0 {
			return fmt.Errorf("%w: label %q has no examples", domain.ErrInvalidInput, name)
		}
	}
	return nil
}

// DefaultLabelSet returns the built-in university help-desk labels. The
// "general" label belongs to neither routing group, so queries that land
// there go straight to the document retriever.
func DefaultLabelSet() LabelSet {
	return LabelSet{
		Temperature: DefaultTemperature,
		Labels: []Label{
			{Name: "admissions", Examples: []string{
				"How do I apply for admission?",
				"What are the entry requirements?",
				"When is the application deadline?",
				"Can I transfer from another university?",
				"What documents do I need to apply?",
			}},
			{Name: "financial", Examples: []string{
				"What is the tuition fee?",
				"How do I pay my fees?",
				"Are there any scholarships available?",
				"Can I get a refund of my fees?",
				"Is financial aid available for students?",
			}},
			{Name: "academic", Examples: []string{
				"When does the semester start?",
				"How do I register for courses?",
				"What is the exam timetable?",
				"How are grades calculated?",
				"Who is my academic advisor?",
			}},
			{Name: "student_services", Examples: []string{
				"Where is the counselling centre?",
				"How do I get a student ID card?",
				"Is there career guidance for students?",
				"How do I contact the IT help desk?",
				"Where can I get medical help on campus?",
			}},
			{Name: "campus_life", Examples: []string{
				"Where is the library?",
				"Is there hostel accommodation?",
				"What clubs and societies can I join?",
				"Where can I eat on campus?",
				"Is there a gym or sports facility?",
			}},
			{Name: "general", Examples: []string{
				"Tell me about the university.",
				"What is the history of the university?",
				"Explain the university policy on research.",
				"What does the student handbook say?",
			}},
		},
	}
}
