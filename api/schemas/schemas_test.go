package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionRequiresSelector(t *testing.T) {
	for action := range ValidActions {
		if action == ActionWaitForTimeout {
			assert.False(t, action.RequiresSelector(), "wait_for_timeout has no target")
			continue
		}
		assert.True(t, action.RequiresSelector(), "action %q should require a selector", action)
	}
}

func TestPageInventoryFieldCount(t *testing.T) {
	inv := &PageInventory{
		Forms: []Form{
			{Inputs: []Element{{Role: RoleInput}, {Role: RoleInput}}, Selects: []Element{{Role: RoleSelect}}},
		},
		Standalone: StandaloneElements{
			Inputs:  []Element{{Role: RoleTextarea}},
			Selects: []Element{{Role: RoleSelect}},
		},
	}
	assert.Equal(t, 5, inv.FieldCount())
}

func TestFilledFieldsClone(t *testing.T) {
	orig := FilledFields{"#email": "a@b.c"}
	cp := orig.Clone()
	require.NotNil(t, cp)

	cp["#name"] = "x"
	assert.Len(t, orig, 1, "clone must be independent of the original")

	var empty FilledFields
	assert.NotNil(t, empty.Clone(), "cloning a nil map yields an empty map")
}

func TestPlanCloneIsIndependent(t *testing.T) {
	p := &Plan{
		Summary:     "fill the form",
		Status:      StatusPending,
		Assumptions: []string{"country defaults to US"},
		Steps:       []Step{{Action: ActionUploadFile, Selector: "#resume", Value: "resume.pdf"}},
	}

	c := p.Clone()
	c.Status = StatusConfirmed
	c.Steps[0].Value = "/tmp/fixture.pdf"
	c.Assumptions[0] = "changed"

	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "resume.pdf", p.Steps[0].Value)
	assert.Equal(t, "country defaults to US", p.Assumptions[0])
}
