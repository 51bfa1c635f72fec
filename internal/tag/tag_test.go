package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyPriority(t *testing.T) {
	assert.Less(t, FamilyPeople.Priority(), FamilyBusiness.Priority())
	assert.Less(t, FamilyBusiness.Priority(), FamilyProjects.Priority())
	assert.Less(t, FamilyProjects.Priority(), FamilyFinance.Priority())
	assert.Less(t, FamilyFinance.Priority(), FamilyTopic.Priority())
	assert.Less(t, FamilyTopic.Priority(), Family("Unknown").Priority())
}

func TestTagAccessors(t *testing.T) {
	tg := Tag("Finance/IFRS")
	assert.Equal(t, FamilyFinance, tg.Family())
	assert.Equal(t, "IFRS", tg.Name())
	assert.False(t, tg.IsPerson())

	person := Tag("People/Jane Doe")
	assert.True(t, person.IsPerson())
	assert.Equal(t, "Jane Doe", person.Name())

	bare := Tag("budgets")
	assert.Equal(t, Family(""), bare.Family())
	assert.Equal(t, "budgets", bare.Name())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tag     Tag
		wantErr bool
	}{
		{"valid finance", "Finance/IFRS", false},
		{"valid person", "People/Jane Doe", false},
		{"missing separator", "Finance", true},
		{"unknown family", "Gadgets/Widget", true},
		{"empty name", "Topic/", true},
		{"empty tag", "", true},
		{"whitespace only", "   ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tag)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "finance/ifrs", Normalize("Finance/IFRS"))
	assert.Equal(t, Normalize("Finance/IFRS"), Normalize("  finance/ifrs  "))
	assert.Equal(t, Normalize("People/Jane Doe"), Normalize("people/jane   doe"))
}

func TestSortSet(t *testing.T) {
	in := []Tag{
		"Topic/Zebra",
		"Finance/Budget",
		"People/Ivan Petrov",
		"Business/Lavka",
		"Projects/Migration",
		"finance/budget", // dup under normalization
	}
	out := SortSet(in)

	require.Len(t, out, 5)
	assert.Equal(t, []Tag{
		"People/Ivan Petrov",
		"Business/Lavka",
		"Projects/Migration",
		"Finance/Budget",
		"Topic/Zebra",
	}, out)
}

func TestSortSetAdjacentInvariant(t *testing.T) {
	in := []Tag{"Topic/B", "Topic/A", "Unknown/X", "People/Z", "People/A", "Finance/Q"}
	out := SortSet(in)
	for i := 0; i+1 < len(out); i++ {
		pi, pj := out[i].Family().Priority(), out[i+1].Family().Priority()
		assert.LessOrEqual(t, pi, pj)
		if pi == pj {
			assert.LessOrEqual(t, string(out[i]), string(out[i+1]))
		}
	}
	// Unknown families sort after Topic.
	assert.Equal(t, Tag("Unknown/X"), out[len(out)-1])
}

func TestSortSetKeepsFirstCasing(t *testing.T) {
	out := SortSet([]Tag{"Finance/IFRS", "finance/ifrs"})
	require.Len(t, out, 1)
	assert.Equal(t, Tag("Finance/IFRS"), out[0])
}

func TestFromStringsDropsBlanks(t *testing.T) {
	out := FromStrings([]string{" Finance/Budget ", "", "   ", "Topic/Q"})
	assert.Equal(t, []Tag{"Finance/Budget", "Topic/Q"}, out)
}
