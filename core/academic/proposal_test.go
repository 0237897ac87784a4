package academic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProposeMissing(t *testing.T) {
	existing := []ClassSection{
		{ClassName: "Grade 1", SectionName: "A"},
		{ClassName: "Grade 2", SectionName: "B"},
	}

	tests := []struct {
		name     string
		classes  []string
		sections []string
		want     []Combination
	}{
		{
			name:     "set difference",
			classes:  []string{"Grade 1", "Grade 2"},
			sections: []string{"A", "B"},
			want: []Combination{
				{ClassName: "Grade 1", SectionName: "B"},
				{ClassName: "Grade 2", SectionName: "A"},
			},
		},
		{
			name:     "case and spaces ignored",
			classes:  []string{"  grade   1 "},
			sections: []string{"a", "C"},
			want:     []Combination{{ClassName: "grade   1", SectionName: "C"}},
		},
		{
			name:     "input duplicates proposed once",
			classes:  []string{"Grade 3", "GRADE 3"},
			sections: []string{"A", "A"},
			want:     []Combination{{ClassName: "Grade 3", SectionName: "A"}},
		},
		{
			name:     "blank names skipped",
			classes:  []string{"", "Grade 3"},
			sections: []string{" "},
			want:     []Combination{},
		},
		{
			name:     "everything exists",
			classes:  []string{"Grade 1"},
			sections: []string{"A"},
			want:     []Combination{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProposeMissing(existing, tt.classes, tt.sections))
		})
	}
}
