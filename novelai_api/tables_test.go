package novelai_api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModels_AllSupported(t *testing.T) {
	require.Len(t, Models, 6)

	for _, model := range Models {
		assert.True(t, IsSupportedModel(model), "expected %s to be supported", model)
		assert.NotEmpty(t, QualityTags(model), "expected quality tags for %s", model)
	}

	assert.False(t, IsSupportedModel("nai-diffusion-5"))
	assert.False(t, IsSupportedModel(""))
}

func TestUCPresetCode_HeavyIsZero(t *testing.T) {
	for _, model := range Models {
		assert.Equal(t, 0, UCPresetCode(model, "Heavy"))
	}
}

func TestUCPresetCode_PerModel(t *testing.T) {
	// The preset list differs per model generation, so the numeric codes
	// shift around.
	assert.Equal(t, 4, UCPresetCode(ModelNAI45Full, "None"))
	assert.Equal(t, 2, UCPresetCode(ModelNAI45Full, "Furry Focus"))
	assert.Equal(t, 3, UCPresetCode(ModelNAI45Curated, "None"))
	assert.Equal(t, 2, UCPresetCode(ModelNAI45Curated, "Human Focus"))
	assert.Equal(t, 2, UCPresetCode(ModelNAI4Full, "None"))
	assert.Equal(t, 3, UCPresetCode(ModelNAI3, "None"))
	assert.Equal(t, 2, UCPresetCode(ModelNAIFurry3, "None"))

	// Presets a model does not carry fall back to 0.
	assert.Equal(t, 0, UCPresetCode(ModelNAI4Full, "Furry Focus"))
	assert.Equal(t, 0, UCPresetCode("unknown-model", "Heavy"))
}

func TestNegativePresetText(t *testing.T) {
	for _, model := range Models {
		assert.NotEmpty(t, NegativePresetText(model, "Heavy"))
		assert.NotEmpty(t, NegativePresetText(model, "Light"))
	}

	// None is an empty negative for v4 models but keeps a minimal one on
	// the v3 generation.
	assert.Empty(t, NegativePresetText(ModelNAI45Full, "None"))
	assert.Empty(t, NegativePresetText(ModelNAI45Curated, "None"))
	assert.Empty(t, NegativePresetText(ModelNAI4Full, "None"))
	assert.Equal(t, "lowres", NegativePresetText(ModelNAI3, "None"))
	assert.Equal(t, "lowres", NegativePresetText(ModelNAIFurry3, "None"))

	assert.Empty(t, NegativePresetText("unknown-model", "Heavy"))
	assert.Empty(t, NegativePresetText(ModelNAI45Full, "Nonexistent"))
}

func TestSkipCfgAboveSigma(t *testing.T) {
	assert.Equal(t, 58.0, SkipCfgAboveSigma(ModelNAI45Full))
	assert.Equal(t, 36.158893609242725, SkipCfgAboveSigma(ModelNAI45Curated))
	assert.Equal(t, 18.254609533779934, SkipCfgAboveSigma(ModelNAI4Full))
	assert.Equal(t, 11.84515480302779, SkipCfgAboveSigma(ModelNAI4CuratedPreview))
	assert.Equal(t, 11.84515480302779, SkipCfgAboveSigma(ModelNAI3))
	assert.Equal(t, 11.84515480302779, SkipCfgAboveSigma(ModelNAIFurry3))
	assert.Equal(t, 0.0, SkipCfgAboveSigma("unknown-model"))
}

func TestIsSupportedSampler(t *testing.T) {
	for _, sampler := range Samplers {
		assert.True(t, IsSupportedSampler(sampler))
	}
	assert.False(t, IsSupportedSampler("ddim"))
	assert.False(t, IsSupportedSampler(""))
}

func TestResolutionMap(t *testing.T) {
	require.Contains(t, ResolutionMap, DefaultResolution)

	assert.Equal(t, Resolution{Width: 832, Height: 1216}, ResolutionMap["竖图"])
	assert.Equal(t, Resolution{Width: 1216, Height: 832}, ResolutionMap["横图"])
	assert.Equal(t, Resolution{Width: 1024, Height: 1024}, ResolutionMap["方图"])
}
