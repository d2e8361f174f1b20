package entities

// CharacterPrompt is one character slot from a generation command. Position
// is a grid code such as "C3"; Negative may be empty.
type CharacterPrompt struct {
	Index    int    `json:"index"`
	Positive string `json:"positive"`
	Negative string `json:"negative,omitempty"`
	Position string `json:"position"`
}

// ParsedParams is the validated result of parsing a generation command.
// Zero values carry the documented defaults, except Seed which stays nil
// when the user did not pin one.
type ParsedParams struct {
	PositivePrompt             string            `json:"positive_prompt"`
	NegativePrompt             string            `json:"negative_prompt,omitempty"`
	NegativePreset             string            `json:"negative_preset"`
	ModelName                  string            `json:"model_name,omitempty"`
	FurryMode                  bool              `json:"furry_mode"`
	AddQualityTags             bool              `json:"add_quality_tags"`
	BaseImage                  string            `json:"base_image,omitempty"`
	BaseStrength               float64           `json:"base_strength"`
	BaseNoise                  float64           `json:"base_noise"`
	Width                      int               `json:"width"`
	Height                     int               `json:"height"`
	Steps                      int               `json:"steps"`
	Guidance                   float64           `json:"guidance"`
	CfgRescale                 float64           `json:"cfg_rescale"`
	Seed                       *int64            `json:"seed,omitempty"`
	Sampler                    string            `json:"sampler"`
	UseCharacterZones          bool              `json:"use_character_zones"`
	Characters                 []CharacterPrompt `json:"characters,omitempty"`
	CharacterReference         string            `json:"character_reference,omitempty"`
	CharacterReferenceStrength float64           `json:"character_reference_strength"`
	StyleAware                 bool              `json:"style_aware"`
	RawParams                  map[string]string `json:"raw_params,omitempty"`
}
