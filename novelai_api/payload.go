package novelai_api

import "strings"

// Request actions understood by the generation endpoint. Inpainting ships
// with the img2img action and is expressed through the mask field plus the
// inpainting model variant.
const (
	ActionGenerate = "generate"
	ActionImg2Img  = "img2img"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CharCaption is one character's caption inside a v4 prompt.
type CharCaption struct {
	CharCaption string  `json:"char_caption"`
	Centers     []Point `json:"centers"`
}

// Caption pairs the shared base caption with the per-character captions.
// CharCaptions must never be nil so it serializes as an empty array.
type Caption struct {
	BaseCaption  string        `json:"base_caption"`
	CharCaptions []CharCaption `json:"char_captions"`
}

type V4Prompt struct {
	Caption   Caption `json:"caption"`
	UseCoords bool    `json:"use_coords"`
	UseOrder  bool    `json:"use_order"`
}

type V4NegativePrompt struct {
	Caption  Caption `json:"caption"`
	LegacyUC bool    `json:"legacy_uc"`
}

// CharacterPromptEntry is one entry of the characterPrompts array.
type CharacterPromptEntry struct {
	Prompt  string `json:"prompt"`
	UC      string `json:"uc"`
	Center  Point  `json:"center"`
	Enabled bool   `json:"enabled"`
}

type DirectorReferenceDescription struct {
	Caption  Caption `json:"caption"`
	LegacyUC bool    `json:"legacy_uc"`
}

// Parameters is the parameters object of a generation request. Pointer
// fields are conditional on the wire: they are emitted, false or zero
// included, exactly when the request variant calls for them.
type Parameters struct {
	ParamsVersion       int      `json:"params_version"`
	Width               int      `json:"width"`
	Height              int      `json:"height"`
	Scale               float64  `json:"scale"`
	Sampler             string   `json:"sampler"`
	Steps               int      `json:"steps"`
	NSamples            int      `json:"n_samples"`
	UCPreset            int      `json:"ucPreset"`
	QualityToggle       bool     `json:"qualityToggle"`
	AutoSmea            bool     `json:"autoSmea"`
	DynamicThresholding bool     `json:"dynamic_thresholding"`
	ControlnetStrength  float64  `json:"controlnet_strength"`
	Legacy              bool     `json:"legacy"`
	AddOriginalImage    bool     `json:"add_original_image"`
	CfgRescale          float64  `json:"cfg_rescale"`
	NoiseSchedule       string   `json:"noise_schedule"`
	LegacyV3Extend      bool     `json:"legacy_v3_extend"`
	SkipCfgAboveSigma   *float64 `json:"skip_cfg_above_sigma,omitempty"`

	UseCoords                          bool `json:"use_coords"`
	NormalizeReferenceStrengthMultiple bool `json:"normalize_reference_strength_multiple"`
	UseOrder                           bool `json:"use_order"`
	LegacyUC                           bool `json:"legacy_uc"`

	Seed             int64                  `json:"seed"`
	CharacterPrompts []CharacterPromptEntry `json:"characterPrompts"`
	NegativePrompt   string                 `json:"negative_prompt"`
	SM               bool                   `json:"sm"`
	SMDyn            bool                   `json:"sm_dyn"`
	V4Prompt         V4Prompt               `json:"v4_prompt"`
	V4NegativePrompt V4NegativePrompt       `json:"v4_negative_prompt"`
	Stream           string                 `json:"stream"`

	// Emitted only for the k_euler_ancestral sampler.
	DeliberateEulerAncestralBug *bool `json:"deliberate_euler_ancestral_bug,omitempty"`
	PreferBrownian              *bool `json:"prefer_brownian,omitempty"`

	// Vibe transfer references.
	ReferenceImageMultiple                []string  `json:"reference_image_multiple,omitempty"`
	ReferenceInformationExtractedMultiple []float64 `json:"reference_information_extracted_multiple,omitempty"`
	ReferenceStrengthMultiple             []float64 `json:"reference_strength_multiple,omitempty"`

	// Director tool character references.
	DirectorReferenceImages                  []string                       `json:"director_reference_images,omitempty"`
	DirectorReferenceDescriptions            []DirectorReferenceDescription `json:"director_reference_descriptions,omitempty"`
	DirectorReferenceInformationExtracted    []int                          `json:"director_reference_information_extracted,omitempty"`
	DirectorReferenceStrengthValues          []float64                      `json:"director_reference_strength_values,omitempty"`
	DirectorReferenceSecondaryStrengthValues []float64                      `json:"director_reference_secondary_strength_values,omitempty"`

	// img2img fields.
	Strength       *float64 `json:"strength,omitempty"`
	Noise          *float64 `json:"noise,omitempty"`
	Image          string   `json:"image,omitempty"`
	ExtraNoiseSeed *int64   `json:"extra_noise_seed,omitempty"`
	ColorCorrect   *bool    `json:"color_correct,omitempty"`
	Mask           string   `json:"mask,omitempty"`
}

// Payload is a complete generation request body.
type Payload struct {
	Input             string      `json:"input"`
	Model             string      `json:"model"`
	Action            string      `json:"action"`
	Parameters        *Parameters `json:"parameters"`
	UseNewSharedTrial bool        `json:"use_new_shared_trial"`
}

// clone copies the payload and its parameters so request variants never
// mutate the payload they were derived from. Slice contents are shared;
// the wrap functions only assign scalar fields.
func (p *Payload) clone() *Payload {
	cloned := *p
	if p.Parameters != nil {
		params := *p.Parameters
		cloned.Parameters = &params
	}
	return &cloned
}

type img2imgOptions struct {
	Image          string
	Strength       float64
	Noise          float64
	ExtraNoiseSeed int64
}

type inpaintOptions struct {
	img2imgOptions
	Mask string
}

// wrapImg2Img derives an image-to-image request from a text-to-image one.
func wrapImg2Img(payload *Payload, opts img2imgOptions) (*Payload, error) {
	if opts.Image == "" {
		return nil, newAPIError(0, "image2image payload requires 'image'")
	}

	wrapped := payload.clone()
	wrapped.Action = ActionImg2Img

	params := wrapped.Parameters
	params.Strength = floatPtr(opts.Strength)
	params.Noise = floatPtr(opts.Noise)
	params.Image = opts.Image
	params.ExtraNoiseSeed = int64Ptr(opts.ExtraNoiseSeed)
	params.ColorCorrect = boolPtr(false)

	return wrapped, nil
}

// wrapInpaint derives an inpaint request on top of the img2img wrap. Curated
// models switch to their dedicated inpainting variant; the action itself
// stays img2img.
func wrapInpaint(payload *Payload, opts inpaintOptions) (*Payload, error) {
	if opts.Mask == "" {
		return nil, newAPIError(0, "inpaint payload requires 'mask'")
	}

	wrapped, err := wrapImg2Img(payload, opts.img2imgOptions)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(payload.Model, "-curated") {
		wrapped.Model = payload.Model + "-inpainting"
	}

	params := wrapped.Parameters
	params.Mask = opts.Mask
	params.AddOriginalImage = false

	return wrapped, nil
}

func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }
func boolPtr(v bool) *bool        { return &v }
