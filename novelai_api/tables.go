package novelai_api

// Image generation models accepted by the API.
const (
	ModelNAI45Full          = "nai-diffusion-4-5-full"
	ModelNAI45Curated       = "nai-diffusion-4-5-curated"
	ModelNAI4Full           = "nai-diffusion-4-full"
	ModelNAI4CuratedPreview = "nai-diffusion-4-curated-preview"
	ModelNAI3               = "nai-diffusion-3"
	ModelNAIFurry3          = "nai-diffusion-furry-3"
)

var Models = []string{
	ModelNAI45Full,
	ModelNAI45Curated,
	ModelNAI4Full,
	ModelNAI4CuratedPreview,
	ModelNAI3,
	ModelNAIFurry3,
}

var Samplers = []string{
	"k_euler",
	"k_euler_ancestral",
	"k_dpmpp_2s_ancestral",
	"k_dpmpp_2m",
	"k_dpmpp_sde",
	"k_dpmpp_2m_sde",
}

var NoiseSchedules = []string{"native", "karras", "exponential", "polyexponential"}

// Named negative prompt presets, strongest filtering first.
var UCPresets = []string{"Heavy", "Light", "Furry Focus", "Human Focus", "None"}

type Resolution struct {
	Width  int
	Height int
}

// ResolutionMap translates the user facing orientation names to canvas
// dimensions.
var ResolutionMap = map[string]Resolution{
	"竖图": {Width: 832, Height: 1216},
	"横图": {Width: 1216, Height: 832},
	"方图": {Width: 1024, Height: 1024},
}

const DefaultResolution = "竖图"

// CharacterPositions enumerates the grid codes A1..E5 usable in the
// per-character 位置 parameter.
var CharacterPositions = characterPositionCodes()

func characterPositionCodes() []string {
	codes := make([]string, 0, 25)
	for letter := 'A'; letter <= 'E'; letter++ {
		for number := '1'; number <= '5'; number++ {
			codes = append(codes, string(letter)+string(number))
		}
	}
	return codes
}

// modelProfile bundles the per-model generation constants: the quality tag
// suffix, the numeric code and prompt text for each negative preset, and the
// CFG skip threshold.
type modelProfile struct {
	qualityTags       string
	ucPresetCodes     map[string]int
	negativePresets   map[string]string
	skipCfgAboveSigma float64
}

var modelProfiles = map[string]modelProfile{
	ModelNAI45Full: {
		qualityTags: ", very aesthetic, masterpiece, no text",
		ucPresetCodes: map[string]int{
			"Heavy":       0,
			"Light":       1,
			"Furry Focus": 2,
			"Human Focus": 3,
			"None":        4,
		},
		negativePresets: map[string]string{
			"Heavy":       "lowres, artistic error, film grain, scan artifacts, worst quality, bad quality, jpeg artifacts, very displeasing, chromatic aberration, dithering, halftone, screentone, multiple views, logo, too many watermarks, negative space, blank page",
			"Light":       "lowres, artistic error, scan artifacts, worst quality, bad quality, jpeg artifacts, multiple views, very displeasing, too many watermarks, negative space, blank page",
			"Furry Focus": "{worst quality}, distracting watermark, unfinished, bad quality, {widescreen}, upscale, {sequence}, {{grandfathered content}}, blurred foreground, chromatic aberration, sketch, everyone, [sketch background], simple, [flat colors], ych (character), outline, multiple scenes, [[horror (theme)]], comic",
			"Human Focus": "lowres, artistic error, film grain, scan artifacts, worst quality, bad quality, jpeg artifacts, very displeasing, chromatic aberration, dithering, halftone, screentone, multiple views, logo, too many watermarks, negative space, blank page, @_@, mismatched pupils, glowing eyes, bad anatomy",
			"None":        "",
		},
		skipCfgAboveSigma: 58.0,
	},
	ModelNAI45Curated: {
		qualityTags: ", very aesthetic, masterpiece, no text, -0.8::feet::, rating:general",
		ucPresetCodes: map[string]int{
			"Heavy":       0,
			"Light":       1,
			"Human Focus": 2,
			"None":        3,
		},
		negativePresets: map[string]string{
			"Heavy":       "blurry, lowres, upscaled, artistic error, film grain, scan artifacts, worst quality, bad quality, jpeg artifacts, very displeasing, chromatic aberration, halftone, multiple views, logo, too many watermarks, negative space, blank page",
			"Light":       "blurry, lowres, upscaled, artistic error, scan artifacts, jpeg artifacts, logo, too many watermarks, negative space, blank page",
			"Human Focus": "blurry, lowres, upscaled, artistic error, film grain, scan artifacts, bad anatomy, bad hands, worst quality, bad quality, jpeg artifacts, very displeasing, chromatic aberration, halftone, multiple views, logo, too many watermarks, @_@, mismatched pupils, glowing eyes, negative space, blank page",
			"None":        "",
		},
		skipCfgAboveSigma: 36.158893609242725,
	},
	ModelNAI4Full: {
		qualityTags: ", no text, best quality, very aesthetic, absurdres",
		ucPresetCodes: map[string]int{
			"Heavy": 0,
			"Light": 1,
			"None":  2,
		},
		negativePresets: map[string]string{
			"Heavy": "blurry, lowres, error, film grain, scan artifacts, worst quality, bad quality, jpeg artifacts, very displeasing, chromatic aberration, multiple views, logo, too many watermarks, white blank page, blank page",
			"Light": "blurry, lowres, error, worst quality, bad quality, jpeg artifacts, very displeasing, white blank page, blank page",
			"None":  "",
		},
		skipCfgAboveSigma: 18.254609533779934,
	},
	ModelNAI4CuratedPreview: {
		qualityTags: ", rating:general, best quality, very aesthetic, absurdres",
		ucPresetCodes: map[string]int{
			"Heavy": 0,
			"Light": 1,
			"None":  2,
		},
		negativePresets: map[string]string{
			"Heavy": "blurry, lowres, error, film grain, scan artifacts, worst quality, bad quality, jpeg artifacts, very displeasing, chromatic aberration, logo, dated, signature, multiple views, gigantic breasts, white blank page, blank page",
			"Light": "blurry, lowres, error, worst quality, bad quality, jpeg artifacts, very displeasing, logo, dated, signature, white blank page, blank page",
			"None":  "",
		},
		skipCfgAboveSigma: 11.84515480302779,
	},
	ModelNAI3: {
		qualityTags: ", best quality, amazing quality, very aesthetic, absurdres",
		ucPresetCodes: map[string]int{
			"Heavy":       0,
			"Light":       1,
			"Human Focus": 2,
			"None":        3,
		},
		negativePresets: map[string]string{
			"Heavy":       "lowres, {bad}, error, fewer, extra, missing, worst quality, jpeg artifacts, bad quality, watermark, unfinished, displeasing, chromatic aberration, signature, extra digits, artistic error, username, scan, [abstract]",
			"Light":       "lowres, jpeg artifacts, worst quality, watermark, blurry, very displeasing",
			"Human Focus": "lowres, {bad}, error, fewer, extra, missing, worst quality, jpeg artifacts, bad quality, watermark, unfinished, displeasing, chromatic aberration, signature, extra digits, artistic error, username, scan, [abstract], bad anatomy, bad hands, @_@, mismatched pupils, heart-shaped pupils, glowing eyes",
			"None":        "lowres",
		},
		skipCfgAboveSigma: 11.84515480302779,
	},
	ModelNAIFurry3: {
		qualityTags: ", {best quality}, {amazing quality}",
		ucPresetCodes: map[string]int{
			"Heavy": 0,
			"Light": 1,
			"None":  2,
		},
		negativePresets: map[string]string{
			"Heavy": "{{worst quality}}, [displeasing], {unusual pupils}, guide lines, {{unfinished}}, {bad}, url, artist name, {{tall image}}, mosaic, {sketch page}, comic panel, impact (font), [dated], {logo}, ych, {what}, {where is your god now}, {distorted text}, repeated text, {floating head}, {1994}, {widescreen}, absolutely everyone, sequence, {compression artifacts}, hard translated, {cropped}, {commissioner name}, unknown text, high contrast",
			"Light": "{worst quality}, guide lines, unfinished, bad, url, tall image, widescreen, compression artifacts, unknown text",
			"None":  "lowres",
		},
		skipCfgAboveSigma: 11.84515480302779,
	},
}

func IsSupportedModel(model string) bool {
	_, ok := modelProfiles[model]
	return ok
}

func IsSupportedSampler(sampler string) bool {
	for _, s := range Samplers {
		if s == sampler {
			return true
		}
	}
	return false
}

func IsValidPosition(code string) bool {
	for _, c := range CharacterPositions {
		if c == code {
			return true
		}
	}
	return false
}

// QualityTags returns the quality tag suffix appended to prompts for the
// given model, or "" for unknown models.
func QualityTags(model string) string {
	return modelProfiles[model].qualityTags
}

// UCPresetCode resolves a preset name to the model specific numeric code.
// Unknown models or presets map to 0.
func UCPresetCode(model, preset string) int {
	return modelProfiles[model].ucPresetCodes[preset]
}

// NegativePresetText returns the negative prompt text behind a preset name,
// or "" when the model or preset is unknown.
func NegativePresetText(model, preset string) string {
	return modelProfiles[model].negativePresets[preset]
}

// SkipCfgAboveSigma returns the CFG skip threshold for the model, 0 when
// unknown.
func SkipCfgAboveSigma(model string) float64 {
	return modelProfiles[model].skipCfgAboveSigma
}
