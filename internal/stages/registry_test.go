package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/design-coach/internal/types"
)

func strPtr(s string) *string { return &s }

func TestRegistry(t *testing.T) {
	expected := []string{
		"requirements", "api-design", "high-level-diagram", "back-of-envelope",
		"data-model", "end-to-end-flow", "deep-dives", "detailed-diagram",
	}
	assert.Equal(t, expected, Order())
	require.Len(t, Registry, len(expected))

	for _, name := range expected {
		def, ok := Get(name)
		require.True(t, ok, "stage %s should be in registry", name)
		assert.Equal(t, name, def.Name)
		assert.NotEmpty(t, def.Title)
		assert.NotEmpty(t, def.Saves)
		assert.Contains(t, def.Endpoint, "/validate")
	}

	endpoints := map[string]bool{}
	for _, def := range All() {
		assert.False(t, endpoints[def.Endpoint], "duplicate endpoint %s", def.Endpoint)
		endpoints[def.Endpoint] = true
	}
}

func TestNextPrevious(t *testing.T) {
	assert.Equal(t, "api-design", Next(Requirements))
	assert.Equal(t, "", Next(DetailedDiagram))
	assert.Equal(t, "", Previous(Requirements))
	assert.Equal(t, "deep-dives", Previous(DetailedDiagram))
	assert.Equal(t, "", Next("unknown"))
}

func TestOrder_ReturnsCopy(t *testing.T) {
	o := Order()
	o[0] = "mutated"
	assert.Equal(t, Requirements, Order()[0])
}

func TestFilled(t *testing.T) {
	d := types.NewDraft()
	for _, input := range []Input{InputRequirements, InputAPIDesign, InputDiagramXML, InputEstimation,
		InputDataModel, InputEndToEndFlow, InputDeepDives, InputDetailedDiagram} {
		assert.False(t, Filled(input, d), "%s should be empty on a new draft", input)
	}
	assert.False(t, Filled(InputRequirements, nil))

	d.Requirements = &types.RequirementsSummary{Functional: []string{"  "}, NonFunctional: []string{}}
	d.APIDesign = []types.APIDesignRow{{API: " ", Request: "body"}}
	d.DiagramXML = strPtr("   ")
	d.DeepDives = []types.DeepDive{{Topic: "", UserSummary: "x"}}
	assert.False(t, Filled(InputRequirements, d))
	assert.False(t, Filled(InputAPIDesign, d))
	assert.False(t, Filled(InputDiagramXML, d))
	assert.False(t, Filled(InputDeepDives, d))

	d.Requirements.NonFunctional = []string{"Low latency"}
	d.APIDesign = append(d.APIDesign, types.APIDesignRow{API: "POST /shorten"})
	d.DiagramXML = strPtr("<mxfile/>")
	d.DeepDives = append(d.DeepDives, types.DeepDive{Topic: "Caching"})
	assert.True(t, Filled(InputRequirements, d))
	assert.True(t, Filled(InputAPIDesign, d))
	assert.True(t, Filled(InputDiagramXML, d))
	assert.True(t, Filled(InputDeepDives, d))
	assert.False(t, Filled(Input("other"), d))
}

func TestMissingAndValidateDependencies(t *testing.T) {
	d := types.NewDraft()

	missing, err := Missing(Requirements, d)
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.NoError(t, ValidateDependencies(Requirements, d))

	d.DataModel = []string{"Users (id)"}
	d.EndToEndFlow = strPtr("Client -> API")
	err = ValidateDependencies(DetailedDiagram, d)
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, DetailedDiagram, depErr.Stage)
	assert.Equal(t, []Input{InputRequirements, InputAPIDesign, InputDiagramXML}, depErr.Missing)
	assert.Contains(t, err.Error(), "requirements, apiDesign, diagramXml")

	_, err = Missing("unknown", d)
	assert.Error(t, err)
}

func TestProgressOf(t *testing.T) {
	d := types.NewDraft()
	d.Estimation = []string{"QPS = 1k"}

	progress := ProgressOf(d)
	require.Len(t, progress, 8)
	assert.Equal(t, Requirements, progress[0].Stage)
	assert.Equal(t, APIDesign, progress[0].Next)
	assert.True(t, progress[3].Done)
	assert.False(t, progress[0].Done)
	assert.Len(t, progress[7].Missing, 5)
	assert.Equal(t, []Input{}, progress[1].Missing)
}
