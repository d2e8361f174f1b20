package novelai_api

import (
	"math"
	"math/rand"
	"strings"

	"novelai_bot/entities"
)

// CompileOptions carries the request inputs that live outside the parsed
// command: the resolved model name and any base64 encoded images.
type CompileOptions struct {
	Model              string
	BaseImage          string
	MaskImage          string
	CharacterReference string
}

// BuildPayload compiles parsed command parameters into a request payload and
// returns it together with the effective seed. A nil parsed seed draws a
// random ten digit one.
func BuildPayload(parsed *entities.ParsedParams, opts CompileOptions) (*Payload, int64, error) {
	if !IsSupportedModel(opts.Model) {
		return nil, 0, newAPIError(0, "不支持的模型: %s", opts.Model)
	}

	var seed int64
	if parsed.Seed != nil {
		seed = *parsed.Seed
	} else {
		seed = randomSeed()
	}

	prompt := strings.TrimSpace(parsed.PositivePrompt)
	if parsed.FurryMode {
		prompt = "fur dataset, " + prompt
	}
	if tags := QualityTags(opts.Model); parsed.AddQualityTags && tags != "" {
		prompt += tags
	}

	negativePrompt := parsed.NegativePrompt
	if negativePrompt == "" {
		negativePrompt = NegativePresetText(opts.Model, parsed.NegativePreset)
	}

	useZones := parsed.UseCharacterZones && len(parsed.Characters) > 0

	v4Positive := make([]CharCaption, 0, len(parsed.Characters))
	v4Negative := make([]CharCaption, 0, len(parsed.Characters))
	characterPrompts := make([]CharacterPromptEntry, 0, len(parsed.Characters))

	var extraPositive, extraNegative []string
	if useZones {
		for _, character := range parsed.Characters {
			x, y := PositionToFloat(character.Position)
			center := Point{X: x, Y: y}
			v4Positive = append(v4Positive, CharCaption{
				CharCaption: character.Positive,
				Centers:     []Point{center},
			})
			v4Negative = append(v4Negative, CharCaption{
				CharCaption: character.Negative,
				Centers:     []Point{center},
			})
			characterPrompts = append(characterPrompts, CharacterPromptEntry{
				Prompt:  character.Positive,
				UC:      character.Negative,
				Center:  center,
				Enabled: true,
			})
		}
	} else {
		// Without zones, character prompts fold into the shared prompts.
		for _, character := range parsed.Characters {
			if character.Positive != "" {
				extraPositive = append(extraPositive, character.Positive)
			}
			if character.Negative != "" {
				extraNegative = append(extraNegative, character.Negative)
			}
		}
	}

	if len(extraPositive) > 0 {
		prompt = joinPrompt(prompt, strings.Join(extraPositive, ", "))
	}
	if len(extraNegative) > 0 {
		negativePrompt = joinPrompt(negativePrompt, strings.Join(extraNegative, ", "))
	}

	skipSigma := SkipCfgAboveSigma(opts.Model)

	params := &Parameters{
		ParamsVersion:      3,
		Width:              parsed.Width,
		Height:             parsed.Height,
		Scale:              parsed.Guidance,
		Sampler:            parsed.Sampler,
		Steps:              parsed.Steps,
		NSamples:           1,
		UCPreset:           UCPresetCode(opts.Model, parsed.NegativePreset),
		QualityToggle:      parsed.AddQualityTags,
		ControlnetStrength: 1,
		AddOriginalImage:   true,
		CfgRescale:         parsed.CfgRescale,
		NoiseSchedule:      "native",
		SkipCfgAboveSigma:  &skipSigma,
		UseCoords:          useZones,
		UseOrder:           true,
		Seed:               seed,
		CharacterPrompts:   characterPrompts,
		NegativePrompt:     negativePrompt,
		V4Prompt: V4Prompt{
			Caption: Caption{
				BaseCaption:  prompt,
				CharCaptions: v4Positive,
			},
			UseCoords: useZones,
			UseOrder:  true,
		},
		V4NegativePrompt: V4NegativePrompt{
			Caption: Caption{
				BaseCaption:  negativePrompt,
				CharCaptions: v4Negative,
			},
		},
		Stream: "msgpack",
	}

	if parsed.Sampler == "k_euler_ancestral" {
		params.DeliberateEulerAncestralBug = boolPtr(false)
		params.PreferBrownian = boolPtr(true)
	}

	if opts.CharacterReference != "" {
		style := "character"
		if parsed.StyleAware {
			style = "character&style"
		}
		params.DirectorReferenceImages = []string{opts.CharacterReference}
		params.DirectorReferenceDescriptions = []DirectorReferenceDescription{{
			Caption: Caption{
				BaseCaption:  style,
				CharCaptions: []CharCaption{},
			},
		}}
		params.DirectorReferenceInformationExtracted = []int{1}
		params.DirectorReferenceStrengthValues = []float64{parsed.CharacterReferenceStrength}
		params.DirectorReferenceSecondaryStrengthValues = []float64{
			math.Max(0, 1-parsed.CharacterReferenceStrength),
		}
	}

	payload := &Payload{
		Input:             prompt,
		Model:             opts.Model,
		Action:            ActionGenerate,
		Parameters:        params,
		UseNewSharedTrial: true,
	}

	if opts.BaseImage != "" {
		wrapped, err := wrapImg2Img(payload, img2imgOptions{
			Image:          opts.BaseImage,
			Strength:       parsed.BaseStrength,
			Noise:          parsed.BaseNoise,
			ExtraNoiseSeed: seed,
		})
		if err != nil {
			return nil, 0, err
		}
		payload = wrapped
	}

	if opts.MaskImage != "" {
		wrapped, err := wrapInpaint(payload, inpaintOptions{
			img2imgOptions: img2imgOptions{
				Image:          opts.BaseImage,
				Strength:       parsed.BaseStrength,
				Noise:          parsed.BaseNoise,
				ExtraNoiseSeed: seed,
			},
			Mask: opts.MaskImage,
		})
		if err != nil {
			return nil, 0, err
		}
		payload = wrapped
	}

	return payload, seed, nil
}

func joinPrompt(base, addon string) string {
	if base == "" {
		return addon
	}
	return base + ", " + addon
}

func randomSeed() int64 {
	return 1_000_000_000 + rand.Int63n(9_000_000_000)
}
